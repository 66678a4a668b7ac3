// Package objectstore implements the raw radiance source: an S3-style
// public bucket listed and read over plain HTTP, with GOES key-layout
// helpers for time-partitioned prefixes and scan start-time tokens.
package objectstore

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/goes-imagery/internal/domain"
)

// Client lists and fetches radiance objects from a public bucket. It owns
// its transport configuration and keeps no state between calls.
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a bucket client for a base URL such as
// "https://noaa-goes16.s3.amazonaws.com".
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		name:    "object-store",
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Name identifies this source in traces and results.
func (c *Client) Name() string { return c.name }

// listBucketResult is the subset of the ListObjectsV2 response we consume.
type listBucketResult struct {
	XMLName               xml.Name `xml:"ListBucketResult"`
	IsTruncated           bool     `xml:"IsTruncated"`
	NextContinuationToken string   `xml:"NextContinuationToken"`
	Contents              []struct {
		Key  string `xml:"Key"`
		Size int64  `xml:"Size"`
	} `xml:"Contents"`
}

// List returns every object key under prefix, following continuation
// tokens across pages.
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	token := ""

	for {
		params := url.Values{
			"list-type": {"2"},
			"prefix":    {prefix},
		}
		if token != "" {
			params.Set("continuation-token", token)
		}

		body, err := c.get(ctx, c.baseURL+"/?"+params.Encode(), "list")
		if err != nil {
			return nil, err
		}

		var result listBucketResult
		if err := xml.Unmarshal(body, &result); err != nil {
			return nil, &domain.SourceError{
				Source: c.name, Op: "list", Kind: domain.KindDataCorrupt,
				Err: fmt.Errorf("decode listing: %w", err),
			}
		}

		for _, obj := range result.Contents {
			keys = append(keys, obj.Key)
		}
		if !result.IsTruncated || result.NextContinuationToken == "" {
			break
		}
		token = result.NextContinuationToken
	}

	c.logger.Debug("bucket listing complete", "prefix", prefix, "keys", len(keys))
	return keys, nil
}

// Get downloads one object by key.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	return c.get(ctx, c.baseURL+"/"+key, "get")
}

func (c *Client) get(ctx context.Context, u, op string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.SourceError{Source: c.name, Op: op, Kind: domain.KindNetworkTransient, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &domain.SourceError{
			Source: c.name, Op: op, Kind: domain.KindNetworkPermanent,
			Err: fmt.Errorf("%s not found", u),
		}
	}
	if resp.StatusCode != http.StatusOK {
		kind := domain.KindNetworkPermanent
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			kind = domain.KindNetworkTransient
		}
		return nil, &domain.SourceError{
			Source: c.name, Op: op, Kind: kind,
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.SourceError{Source: c.name, Op: op, Kind: domain.KindNetworkTransient, Err: err}
	}
	return body, nil
}

// HourPrefix builds the time-partitioned listing prefix:
//
//	<objectStoragePrefix>/<year>/<dayOfYear>/<hour>/
func HourPrefix(storagePrefix string, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s/%d/%03d/%02d/", storagePrefix, t.Year(), t.YearDay(), t.Hour())
}

// startTimeToken marks the scan start time inside object filenames.
const startTimeToken = "_s"

// startTimeDigits is the fixed width of the token body: YYYYDDDHHMMSS.
const startTimeDigits = 13

// ParseStartTime extracts the scan start time embedded in an object key's
// "_sYYYYDDDHHMMSS..." token. The token is fixed-width and positional;
// trailing digits (sub-second) are ignored.
func ParseStartTime(key string) (time.Time, error) {
	i := strings.LastIndex(key, startTimeToken)
	if i < 0 || len(key) < i+len(startTimeToken)+startTimeDigits {
		return time.Time{}, fmt.Errorf("no start-time token in key %q", key)
	}
	tok := key[i+len(startTimeToken) : i+len(startTimeToken)+startTimeDigits]

	var year, doy, hh, mm, ss int
	if _, err := fmt.Sscanf(tok, "%4d%3d%2d%2d%2d", &year, &doy, &hh, &mm, &ss); err != nil {
		return time.Time{}, fmt.Errorf("malformed start-time token %q: %w", tok, err)
	}
	if doy < 1 || doy > 366 || hh > 23 || mm > 59 || ss > 59 {
		return time.Time{}, fmt.Errorf("start-time token %q out of range", tok)
	}

	return time.Date(year, 1, 1, hh, mm, ss, 0, time.UTC).AddDate(0, 0, doy-1), nil
}

// FilterChannel keeps only keys belonging to the given instrument channel.
// Composite channels have no raw objects, so the result is always empty
// for them.
func FilterChannel(keys []string, ch domain.ChannelSpec) []string {
	if ch.Number == nil {
		return nil
	}
	marker := fmt.Sprintf("C%02d_", *ch.Number)

	var out []string
	for _, k := range keys {
		if strings.Contains(k, marker) {
			out = append(out, k)
		}
	}
	return out
}

// BestMatch returns the key whose embedded start time is nearest target.
// Keys without a parseable token are skipped.
func BestMatch(keys []string, target time.Time) (string, bool) {
	var best string
	var bestDiff time.Duration
	found := false

	for _, k := range keys {
		st, err := ParseStartTime(k)
		if err != nil {
			continue
		}
		diff := st.Sub(target)
		if diff < 0 {
			diff = -diff
		}
		if !found || diff < bestDiff {
			best, bestDiff, found = k, diff, true
		}
	}
	return best, found
}
