package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies acquisition failures for retry decisions and for the
// caller-facing failure reason.
type ErrorKind string

const (
	// KindNetworkTransient covers timeouts, resets, and retryable server
	// errors. Retried locally; surfaces only after the attempt cap.
	KindNetworkTransient ErrorKind = "NETWORK_TRANSIENT"
	// KindNetworkPermanent covers not-found and no-data-for-time conditions.
	KindNetworkPermanent ErrorKind = "NETWORK_PERMANENT"
	// KindDataCorrupt covers payloads that fail to decode as expected.
	KindDataCorrupt ErrorKind = "DATA_CORRUPT"
	// KindConfiguration covers requests built against an unsupported
	// configuration. The only kind allowed to cross the facade as an error.
	KindConfiguration ErrorKind = "CONFIGURATION"
)

// SourceError is a classified failure from one source client operation.
type SourceError struct {
	Source string
	Op     string
	Kind   ErrorKind
	Err    error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Source, e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Source, e.Op, e.Kind)
}

func (e *SourceError) Unwrap() error { return e.Err }

// ConfigurationError indicates a request built against an undeclared domain
// or an otherwise unsupported configuration.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// Classify maps any error to its taxonomy kind. Unrecognized errors are
// treated as transient so they stay retryable (the safe default).
func Classify(err error) ErrorKind {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Kind
	}
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return KindConfiguration
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindNetworkTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetworkTransient
	}
	return KindNetworkTransient
}

// Diagnosis renders a failure kind as a short diagnosis plus an actionable
// suggestion, suitable for display next to a placeholder image.
func Diagnosis(kind ErrorKind) string {
	switch kind {
	case KindNetworkTransient:
		return "imagery sources did not respond; check connectivity and try again"
	case KindNetworkPermanent:
		return "no imagery available for the requested channel and time; try a different channel or time"
	case KindDataCorrupt:
		return "downloaded data could not be decoded; the upstream product may be malformed, try again later"
	case KindConfiguration:
		return "request is not supported by the current configuration"
	default:
		return "acquisition failed for an unknown reason"
	}
}
