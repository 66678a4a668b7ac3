package cascade

import (
	"context"

	"github.com/couchcryptid/goes-imagery/internal/domain"
	"github.com/couchcryptid/goes-imagery/internal/retry"
)

// WebSource is a pre-rendered imagery endpoint: the primary CDN, a
// mirror, or the archive index client.
type WebSource interface {
	Name() string
	Probe(ctx context.Context, req domain.AcquisitionRequest) (bool, error)
	Fetch(ctx context.Context, req domain.AcquisitionRequest) ([]byte, error)
}

// WebStrategy fetches a finished image product from one web source,
// retrying transient failures per the policy.
type WebStrategy struct {
	source WebSource
	policy *retry.Policy
}

// NewWebStrategy pairs a web source with the retry policy.
func NewWebStrategy(source WebSource, policy *retry.Policy) *WebStrategy {
	return &WebStrategy{source: source, policy: policy}
}

// Name identifies the underlying source.
func (s *WebStrategy) Name() string { return s.source.Name() }

// Acquire fetches the image, retrying transient failures.
func (s *WebStrategy) Acquire(ctx context.Context, req domain.AcquisitionRequest) (Acquisition, error) {
	var payload []byte
	attempts, err := s.policy.Execute(ctx, func(ctx context.Context) error {
		p, ferr := s.source.Fetch(ctx, req)
		if ferr != nil {
			return ferr
		}
		payload = p
		return nil
	})
	return Acquisition{Payload: payload, Attempts: attempts}, err
}
