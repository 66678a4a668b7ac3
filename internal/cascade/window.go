package cascade

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/goes-imagery/internal/domain"
	"github.com/couchcryptid/goes-imagery/internal/retry"
	"github.com/couchcryptid/goes-imagery/internal/source/objectstore"
)

// ObjectStore is the raw radiance bucket capability consumed by the
// window search.
type ObjectStore interface {
	Name() string
	List(ctx context.Context, prefix string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// WindowSearch locates raw radiance data by probing expanding time
// windows around the target hour: exact, then -1h, +1h, -2h, +2h, up to
// the bound. The first window with a matching object wins.
type WindowSearch struct {
	store          ObjectStore
	policy         *retry.Policy
	maxWindowHours int
	clock          clockwork.Clock
}

// NewWindowSearch builds the raw-data strategy. The clock supplies the
// target time for "most recent" requests.
func NewWindowSearch(store ObjectStore, policy *retry.Policy, maxWindowHours int, clock clockwork.Clock) *WindowSearch {
	return &WindowSearch{
		store:          store,
		policy:         policy,
		maxWindowHours: maxWindowHours,
		clock:          clock,
	}
}

// Name identifies the underlying source.
func (s *WindowSearch) Name() string { return s.store.Name() }

// Acquire searches the expanding windows, then downloads the best match.
// An empty window is not a failure; it just widens the search. Listing or
// download errors abort this source and move the cascade on.
func (s *WindowSearch) Acquire(ctx context.Context, req domain.AcquisitionRequest) (Acquisition, error) {
	paths, err := domain.ResolveProductPaths(req.Domain)
	if err != nil {
		return Acquisition{}, err
	}

	target := s.clock.Now().UTC()
	if req.Timestamp != nil {
		target = req.Timestamp.UTC()
	}

	totalAttempts := 0
	for _, offset := range windowOffsets(s.maxWindowHours) {
		if ctx.Err() != nil {
			return Acquisition{Attempts: totalAttempts}, ctx.Err()
		}

		prefix := objectstore.HourPrefix(paths.ObjectStoragePrefix, target.Add(time.Duration(offset)*time.Hour))

		var keys []string
		attempts, err := s.policy.Execute(ctx, func(ctx context.Context) error {
			listed, lerr := s.store.List(ctx, prefix)
			if lerr != nil {
				return lerr
			}
			keys = listed
			return nil
		})
		totalAttempts += attempts
		if err != nil {
			return Acquisition{Attempts: totalAttempts}, err
		}

		keys = objectstore.FilterChannel(keys, req.Channel)
		key, ok := objectstore.BestMatch(keys, target)
		if !ok {
			continue
		}

		var payload []byte
		attempts, err = s.policy.Execute(ctx, func(ctx context.Context) error {
			body, gerr := s.store.Get(ctx, key)
			if gerr != nil {
				return gerr
			}
			payload = body
			return nil
		})
		totalAttempts += attempts
		if err != nil {
			return Acquisition{Attempts: totalAttempts}, err
		}

		return Acquisition{Payload: payload, Attempts: totalAttempts, WindowOffset: offset}, nil
	}

	return Acquisition{Attempts: totalAttempts}, &domain.SourceError{
		Source: s.store.Name(), Op: "search", Kind: domain.KindNetworkPermanent,
		Err: fmt.Errorf("no %s objects within %dh of %s", req.Channel.ID, s.maxWindowHours, target.Format(time.RFC3339)),
	}
}

// windowOffsets yields 0, -1, +1, -2, +2, ... up to +/-maxHours.
func windowOffsets(maxHours int) []int {
	offsets := []int{0}
	for h := 1; h <= maxHours; h++ {
		offsets = append(offsets, -h, h)
	}
	return offsets
}
