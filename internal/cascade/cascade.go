// Package cascade orchestrates the ordered fallback across imagery
// sources for one acquisition request. Sources are tried strictly in
// priority order, each attempt wrapped by the retry policy; the first
// success short-circuits the rest.
package cascade

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/goes-imagery/internal/domain"
	"github.com/couchcryptid/goes-imagery/internal/observability"
)

// Acquisition is the product of one strategy: the payload plus attempt
// accounting. Attempts is populated even when the strategy fails.
type Acquisition struct {
	Payload []byte
	// Attempts counts individual network attempts, including retries.
	Attempts int
	// WindowOffset is the hour offset of the window that satisfied a
	// raw-data search; zero for web sources and exact-window hits.
	WindowOffset int
}

// Strategy is one (search strategy, source client) pairing in the cascade.
type Strategy interface {
	Name() string
	Acquire(ctx context.Context, req domain.AcquisitionRequest) (Acquisition, error)
}

// Outcome is a successful cascade run.
type Outcome struct {
	Payload      []byte
	Source       string
	Attempts     int
	WindowOffset int
	Trace        []domain.AttemptRecord
}

// ExhaustionError reports that every strategy failed. Kind carries the
// dominant classification: transient failures dominate (the caller may
// want to try again later), then corrupt, then permanent.
type ExhaustionError struct {
	Kind  domain.ErrorKind
	Trace []domain.AttemptRecord
}

func (e *ExhaustionError) Error() string {
	parts := make([]string, 0, len(e.Trace))
	for _, a := range e.Trace {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Source, a.Outcome))
	}
	return fmt.Sprintf("all sources exhausted (%s): %s", e.Kind, strings.Join(parts, ", "))
}

// Cascade tries an ordered list of strategies for one request.
type Cascade struct {
	strategies []Strategy
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a cascade over strategies in priority order.
func New(strategies []Strategy, logger *slog.Logger, metrics *observability.Metrics) *Cascade {
	return &Cascade{
		strategies: strategies,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run tries each strategy in order until one succeeds or all are
// exhausted. Once a strategy succeeds, later ones are never invoked.
func (c *Cascade) Run(ctx context.Context, req domain.AcquisitionRequest) (*Outcome, error) {
	var trace []domain.AttemptRecord
	var kinds []domain.ErrorKind
	totalAttempts := 0

	for _, s := range c.strategies {
		start := time.Now()
		acq, err := s.Acquire(ctx, req)
		elapsed := time.Since(start)
		totalAttempts += acq.Attempts

		if err == nil {
			trace = append(trace, domain.AttemptRecord{Source: s.Name(), Outcome: "success", Duration: elapsed})
			c.metrics.SourceAttempts.WithLabelValues(s.Name(), "success").Inc()
			c.metrics.FetchDuration.WithLabelValues(s.Name()).Observe(elapsed.Seconds())
			return &Outcome{
				Payload:      acq.Payload,
				Source:       s.Name(),
				Attempts:     totalAttempts,
				WindowOffset: acq.WindowOffset,
				Trace:        trace,
			}, nil
		}

		kind := domain.Classify(err)
		kinds = append(kinds, kind)
		trace = append(trace, domain.AttemptRecord{
			Source:   s.Name(),
			Outcome:  outcomeLabel(kind),
			Error:    err.Error(),
			Duration: elapsed,
		})
		c.metrics.SourceAttempts.WithLabelValues(s.Name(), outcomeLabel(kind)).Inc()
		c.metrics.FetchDuration.WithLabelValues(s.Name()).Observe(elapsed.Seconds())
		c.logger.Warn("source failed, advancing cascade",
			"source", s.Name(), "kind", kind, "error", err)

		if ctx.Err() != nil {
			break
		}
	}

	return nil, &ExhaustionError{Kind: dominantKind(kinds), Trace: trace}
}

func outcomeLabel(kind domain.ErrorKind) string {
	switch kind {
	case domain.KindNetworkTransient:
		return "transient"
	case domain.KindNetworkPermanent:
		return "permanent"
	case domain.KindDataCorrupt:
		return "corrupt"
	default:
		return "error"
	}
}

func dominantKind(kinds []domain.ErrorKind) domain.ErrorKind {
	dominant := domain.KindNetworkPermanent
	for _, k := range kinds {
		switch k {
		case domain.KindNetworkTransient:
			return domain.KindNetworkTransient
		case domain.KindDataCorrupt:
			dominant = domain.KindDataCorrupt
		}
	}
	return dominant
}
