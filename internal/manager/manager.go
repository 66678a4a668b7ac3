// Package manager is the public facade of the acquisition engine. It
// wires the cache, the fallback cascades, and the processor, and turns
// every expected failure into a classified result instead of an error.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/goes-imagery/internal/cache"
	"github.com/couchcryptid/goes-imagery/internal/cascade"
	"github.com/couchcryptid/goes-imagery/internal/domain"
	"github.com/couchcryptid/goes-imagery/internal/observability"
	"github.com/couchcryptid/goes-imagery/internal/processing"
)

// DefaultBatchConcurrency bounds GetImageryBatch when the caller passes a
// non-positive limit.
const DefaultBatchConcurrency = 5

// Manager coordinates one acquisition engine instance. All collaborators
// are injected at construction; the Manager owns their lifecycle and no
// process-wide state exists outside it.
type Manager struct {
	webCascade *cascade.Cascade
	rawCascade *cascade.Cascade
	results    *cache.Cache
	outputDir  string
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a Manager. webCascade serves IMAGE_PRODUCT requests in
// priority order (primary CDN, mirror, archive); rawCascade serves
// RAW_DATA requests via the object-store window search.
func New(webCascade, rawCascade *cascade.Cascade, results *cache.Cache, outputDir string, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Manager {
	return &Manager{
		webCascade: webCascade,
		rawCascade: rawCascade,
		results:    results,
		outputDir:  outputDir,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// GetImagery resolves one request into a locally available image. The
// returned error is non-nil only for configuration mistakes (undeclared
// domain, composite in RAW_DATA mode); every expected network failure
// comes back as a classified, non-throwing result.
func (m *Manager) GetImagery(ctx context.Context, req domain.AcquisitionRequest) (domain.AcquisitionResult, error) {
	if err := req.Validate(); err != nil {
		return domain.AcquisitionResult{}, err
	}

	key := req.Fingerprint()
	result, hit, err := m.results.GetOrCompute(ctx, key, func(ctx context.Context) (domain.AcquisitionResult, error) {
		return m.acquire(ctx, req, key), nil
	})
	if err != nil {
		// The compute above never errors; this only propagates cache plumbing.
		return domain.AcquisitionResult{}, err
	}

	if hit {
		m.metrics.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.metrics.CacheLookups.WithLabelValues("miss").Inc()
	}
	return result, nil
}

// GetImageryBatch runs requests on a bounded worker pool. One request's
// failure never aborts the others; the map always holds exactly one
// result per request, keyed by fingerprint.
func (m *Manager) GetImageryBatch(ctx context.Context, reqs []domain.AcquisitionRequest, maxConcurrency int) map[string]domain.AcquisitionResult {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultBatchConcurrency
	}
	m.metrics.BatchSize.Observe(float64(len(reqs)))

	var mu sync.Mutex
	out := make(map[string]domain.AcquisitionResult, len(reqs))

	var g errgroup.Group
	g.SetLimit(maxConcurrency)
	for _, req := range reqs {
		g.Go(func() error {
			key := req.Fingerprint()
			result, err := m.GetImagery(ctx, req)
			if err != nil {
				// Configuration errors become classified results here so a
				// single malformed request cannot sink the batch.
				result = domain.AcquisitionResult{
					Success:     false,
					FailureKind: domain.KindConfiguration,
					Diagnosis:   err.Error(),
				}
			}
			mu.Lock()
			out[key] = result
			mu.Unlock()
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors

	return out
}

// CheckReadiness reports whether the engine can deliver imagery: the
// output directory must be writable.
func (m *Manager) CheckReadiness(_ context.Context) error {
	probe := filepath.Join(m.outputDir, ".readyz")
	if err := os.MkdirAll(m.outputDir, 0o755); err != nil {
		m.metrics.EngineReady.Set(0)
		return fmt.Errorf("output dir: %w", err)
	}
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		m.metrics.EngineReady.Set(0)
		return fmt.Errorf("output dir not writable: %w", err)
	}
	os.Remove(probe) //nolint:errcheck // best-effort cleanup
	m.metrics.EngineReady.Set(1)
	return nil
}

// acquire runs the cascade and builds the classified result. It never
// returns an error: failures fold into the result.
func (m *Manager) acquire(ctx context.Context, req domain.AcquisitionRequest, key string) domain.AcquisitionResult {
	start := m.clock.Now()

	var run *cascade.Cascade
	if req.Mode == domain.ModeRawData {
		run = m.rawCascade
	} else {
		run = m.webCascade
	}

	outcome, err := run.Run(ctx, req)
	if err != nil {
		return m.failureResult(req, err, m.clock.Since(start))
	}

	path, size, err := m.store(req, key, outcome)
	if err != nil {
		m.logger.Error("storing acquisition failed", "channel", req.Channel.ID, "error", err)
		result := m.failureResult(req, err, m.clock.Since(start))
		result.Trace = outcome.Trace
		return result
	}

	m.metrics.Acquisitions.WithLabelValues(string(req.Mode), "success").Inc()
	if req.Mode == domain.ModeRawData {
		off := outcome.WindowOffset
		if off < 0 {
			off = -off
		}
		m.metrics.WindowOffsets.Observe(float64(off))
	}
	m.logger.Info("acquisition complete",
		"channel", req.Channel.ID, "domain", req.Domain, "mode", req.Mode,
		"source", outcome.Source, "attempts", outcome.Attempts, "bytes", size)

	return domain.AcquisitionResult{
		FilePath:     path,
		ByteSize:     size,
		SourceUsed:   outcome.Source,
		AttemptsMade: outcome.Attempts,
		WindowOffset: outcome.WindowOffset,
		Elapsed:      m.clock.Since(start),
		Success:      true,
		Trace:        outcome.Trace,
	}
}

// store persists the cascade payload: raw radiance is decoded, calibrated,
// and rendered to PNG; pre-rendered products are written through as JPEG.
func (m *Manager) store(req domain.AcquisitionRequest, key string, outcome *cascade.Outcome) (string, int64, error) {
	var path string
	if req.Mode == domain.ModeRawData {
		scene, err := processing.Decode(outcome.Payload)
		if err != nil {
			return "", 0, err
		}
		cal, err := processing.Calibrate(scene, req.Channel)
		if err != nil {
			return "", 0, err
		}
		img, err := processing.Render(cal, req.Channel, req.Level)
		if err != nil {
			return "", 0, err
		}
		path = filepath.Join(m.outputDir, key+".png")
		if err := processing.WriteImage(path, img); err != nil {
			return "", 0, err
		}
	} else {
		path = filepath.Join(m.outputDir, key+".jpg")
		if err := processing.WriteBytes(path, outcome.Payload); err != nil {
			return "", 0, err
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return path, info.Size(), nil
}

// failureResult classifies an error into a non-throwing result with a
// user-renderable diagnosis.
func (m *Manager) failureResult(req domain.AcquisitionRequest, err error, elapsed time.Duration) domain.AcquisitionResult {
	kind := domain.Classify(err)
	var trace []domain.AttemptRecord

	var ex *cascade.ExhaustionError
	if errors.As(err, &ex) {
		kind = ex.Kind
		trace = ex.Trace
	}

	m.metrics.Acquisitions.WithLabelValues(string(req.Mode), "failure").Inc()
	m.logger.Warn("acquisition failed",
		"channel", req.Channel.ID, "domain", req.Domain, "mode", req.Mode,
		"kind", kind, "error", err)

	return domain.AcquisitionResult{
		Elapsed:     elapsed,
		Success:     false,
		FailureKind: kind,
		Diagnosis:   domain.Diagnosis(kind),
		Trace:       trace,
	}
}
