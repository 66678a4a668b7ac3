// Package cdn implements the pre-rendered imagery source clients: the
// primary STAR CDN, any secondary mirror with the same URL scheme, and the
// archived-imagery index.
package cdn

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/goes-imagery/internal/domain"
)

// Client fetches pre-rendered JPEG products from a STAR-style CDN. The
// same implementation serves as primary and mirror; only the host and
// source name differ. Each client owns its transport configuration and is
// stateless between calls.
type Client struct {
	name       string
	host       string
	satellite  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a CDN client. name identifies the source in attempt
// traces and results, e.g. "primary-cdn" or "mirror-cdn".
func NewClient(name, host, satellite string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		name:      name,
		host:      host,
		satellite: satellite,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Name identifies this source in traces and results.
func (c *Client) Name() string { return c.name }

// URL builds the CDN address for a request:
//
//	https://<host>/<SATELLITE>/ABI/<webPathSegment>/latest/<channel>_<sizeHint>.jpg
func (c *Client) URL(req domain.AcquisitionRequest) (string, error) {
	paths, err := domain.ResolveProductPaths(req.Domain)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s/%s/ABI/%s/latest/%s_%s.jpg",
		c.host, c.satellite, paths.WebPathSegment, channelToken(req.Channel), req.EffectiveSizeHint()), nil
}

// Probe performs a cheap HEAD existence check. A 404 is a valid "not
// here" answer, not an error.
func (c *Client) Probe(ctx context.Context, req domain.AcquisitionRequest) (bool, error) {
	u, err := c.URL(req)
	if err != nil {
		return false, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return false, fmt.Errorf("create probe request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false, c.transportError("probe", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, c.statusError("probe", resp.StatusCode)
	}
	return true, nil
}

// Fetch downloads the pre-rendered image. Payloads that are not JPEG are
// reported as corrupt so the cascade moves on instead of caching garbage.
func (c *Client) Fetch(ctx context.Context, req domain.AcquisitionRequest) ([]byte, error) {
	u, err := c.URL(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create fetch request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError("fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("fetch", resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError("fetch", err)
	}
	if !isJPEG(payload) {
		return nil, &domain.SourceError{
			Source: c.name, Op: "fetch", Kind: domain.KindDataCorrupt,
			Err: fmt.Errorf("payload of %d bytes is not a JPEG", len(payload)),
		}
	}

	c.logger.Debug("cdn fetch complete", "source", c.name, "url", u, "bytes", len(payload))
	return payload, nil
}

func (c *Client) transportError(op string, err error) error {
	// Timeouts, resets, and DNS hiccups all land here; all retryable.
	return &domain.SourceError{Source: c.name, Op: op, Kind: domain.KindNetworkTransient, Err: err}
}

func (c *Client) statusError(op string, status int) error {
	kind := domain.KindNetworkPermanent
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500 {
		kind = domain.KindNetworkTransient
	}
	return &domain.SourceError{
		Source: c.name, Op: op, Kind: kind,
		Err: fmt.Errorf("unexpected status %d", status),
	}
}

// channelToken renders the channel as it appears in CDN paths: the band
// number for instrument channels, the composite identifier otherwise.
func channelToken(ch domain.ChannelSpec) string {
	if ch.Number != nil {
		return fmt.Sprintf("%02d", *ch.Number)
	}
	return ch.ID
}

func isJPEG(payload []byte) bool {
	return len(payload) >= 2 && payload[0] == 0xFF && payload[1] == 0xD8
}
