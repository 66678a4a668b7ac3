package cdn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/goes-imagery/internal/domain"
)

// ArchiveClient fetches from the archived-imagery index: a JSON manifest
// of retained frames per (domain, channel), each pointing at a stored
// JPEG. It is the last web source in the cascade and the only one that
// can satisfy non-latest timestamps for image products.
type ArchiveClient struct {
	name       string
	host       string
	satellite  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewArchiveClient creates an archive index client.
func NewArchiveClient(host, satellite string, timeout time.Duration, logger *slog.Logger) *ArchiveClient {
	return &ArchiveClient{
		name:      "archive",
		host:      host,
		satellite: satellite,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Name identifies this source in traces and results.
func (c *ArchiveClient) Name() string { return c.name }

// Probe reports whether the archive holds any frame for the request.
func (c *ArchiveClient) Probe(ctx context.Context, req domain.AcquisitionRequest) (bool, error) {
	frames, err := c.index(ctx, req)
	if err != nil {
		return false, err
	}
	return len(frames) > 0, nil
}

// Fetch picks the archived frame nearest the requested timestamp (most
// recent when the timestamp is absent) and downloads it.
func (c *ArchiveClient) Fetch(ctx context.Context, req domain.AcquisitionRequest) ([]byte, error) {
	frames, err := c.index(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, &domain.SourceError{
			Source: c.name, Op: "fetch", Kind: domain.KindNetworkPermanent,
			Err: fmt.Errorf("no archived frames for %s/%s", req.Domain, req.Channel.ID),
		}
	}

	frame := pickFrame(frames, req.Timestamp)
	payload, err := c.get(ctx, "https://"+c.host+frame.Path)
	if err != nil {
		return nil, err
	}
	if !isJPEG(payload) {
		return nil, &domain.SourceError{
			Source: c.name, Op: "fetch", Kind: domain.KindDataCorrupt,
			Err: fmt.Errorf("archived frame %s is not a JPEG", frame.Path),
		}
	}
	return payload, nil
}

type archiveFrame struct {
	StartTime time.Time `json:"start_time"`
	Path      string    `json:"path"`
}

type archiveIndex struct {
	Frames []archiveFrame `json:"frames"`
}

func (c *ArchiveClient) index(ctx context.Context, req domain.AcquisitionRequest) ([]archiveFrame, error) {
	paths, err := domain.ResolveProductPaths(req.Domain)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("https://%s/archive/%s/ABI/%s/%s/index.json",
		c.host, c.satellite, paths.WebPathSegment, channelToken(req.Channel))

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var idx archiveIndex
	if err := json.Unmarshal(body, &idx); err != nil {
		return nil, &domain.SourceError{
			Source: c.name, Op: "index", Kind: domain.KindDataCorrupt,
			Err: fmt.Errorf("decode archive index: %w", err),
		}
	}
	return idx.Frames, nil
}

func (c *ArchiveClient) get(ctx context.Context, u string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.SourceError{Source: c.name, Op: "get", Kind: domain.KindNetworkTransient, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &domain.SourceError{
			Source: c.name, Op: "get", Kind: domain.KindNetworkPermanent,
			Err: fmt.Errorf("%s not found", u),
		}
	}
	if resp.StatusCode != http.StatusOK {
		kind := domain.KindNetworkPermanent
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			kind = domain.KindNetworkTransient
		}
		return nil, &domain.SourceError{
			Source: c.name, Op: "get", Kind: kind,
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	return io.ReadAll(resp.Body)
}

// pickFrame selects the frame nearest target, or the newest frame when no
// target is given.
func pickFrame(frames []archiveFrame, target *time.Time) archiveFrame {
	best := frames[0]
	for _, f := range frames[1:] {
		if target == nil {
			if f.StartTime.After(best.StartTime) {
				best = f
			}
			continue
		}
		if absDuration(f.StartTime.Sub(*target)) < absDuration(best.StartTime.Sub(*target)) {
			best = f
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
