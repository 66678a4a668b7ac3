package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// AcquisitionMode selects between fetching a pre-rendered image product and
// fetching raw radiance data for local processing.
type AcquisitionMode string

const (
	ModeImageProduct AcquisitionMode = "IMAGE_PRODUCT"
	ModeRawData      AcquisitionMode = "RAW_DATA"
)

// ProcessingLevel controls the fidelity/cost trade-off when processing raw
// data. Ignored in IMAGE_PRODUCT mode.
type ProcessingLevel string

const (
	LevelQuicklook      ProcessingLevel = "QUICKLOOK"
	LevelFullResolution ProcessingLevel = "FULL_RESOLUTION"
	LevelThumbnail      ProcessingLevel = "THUMBNAIL"
)

// Refresh granularities used to round request timestamps into cache keys.
// Image products refresh on the ABI scan cadence; raw radiance objects are
// partitioned by hour in the bucket.
const (
	imageProductGranularity = 10 * time.Minute
	rawDataGranularity      = time.Hour
)

// AcquisitionRequest identifies one logical imagery request. Timestamp nil
// means "most recent available".
type AcquisitionRequest struct {
	Channel   ChannelSpec
	Domain    ProductDomain
	Mode      AcquisitionMode
	Level     ProcessingLevel
	Timestamp *time.Time
	SizeHint  string
}

// Validate checks the request against the catalog's constraints. Violations
// are configuration errors: they indicate a caller bug, not a runtime
// condition.
func (r AcquisitionRequest) Validate() error {
	if r.Channel.ID == "" {
		return &ConfigurationError{Reason: "request has no channel"}
	}
	if _, err := ResolveProductPaths(r.Domain); err != nil {
		return err
	}
	switch r.Mode {
	case ModeImageProduct, ModeRawData:
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("unknown acquisition mode %q", r.Mode)}
	}
	if r.Channel.IsComposite() && r.Mode != ModeImageProduct {
		return &ConfigurationError{Reason: fmt.Sprintf("composite channel %s requires IMAGE_PRODUCT mode", r.Channel.ID)}
	}
	return nil
}

// EffectiveSizeHint returns the size hint or the catalog default.
func (r AcquisitionRequest) EffectiveSizeHint() string {
	if r.SizeHint == "" {
		return "1200x1200"
	}
	return r.SizeHint
}

// Fingerprint derives the deterministic cache key for this request. The
// timestamp is rounded to the natural refresh granularity of its source so
// that near-identical requests share one cache entry.
func (r AcquisitionRequest) Fingerprint() string {
	ts := "latest"
	if r.Timestamp != nil {
		granularity := imageProductGranularity
		if r.Mode == ModeRawData {
			granularity = rawDataGranularity
		}
		ts = r.Timestamp.UTC().Truncate(granularity).Format("20060102T150405")
	}
	raw := fmt.Sprintf("%s|%s|%s|%s|%s", r.Channel.ID, r.Domain, r.Mode, r.EffectiveSizeHint(), ts)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:16]
}
