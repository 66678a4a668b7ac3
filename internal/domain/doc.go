// Package domain models GOES ABI imagery requests and the static catalog
// of channels and scan domains.
//
// # Channels
//
// The Advanced Baseline Imager (ABI) produces sixteen spectral bands.
// Band 12 is reserved and never declared in the catalog, so a lookup for
// it legitimately finds nothing. Derived composites (GeoColor, Airmass,
// Sandwich) have no band number; they exist only as pre-rendered image
// products and can never be requested in RAW_DATA mode.
//
// # Scan domains
//
// Each ProductDomain maps to an immutable addressing pair:
//
//	objectStoragePrefix  - L1b radiance prefix in the archive bucket,
//	                       e.g. "ABI-L1b-RadC" for CONUS
//	webPathSegment       - path component used by the imagery CDNs,
//	                       e.g. "CONUS"
//
// # Object key conventions
//
// Raw radiance objects live under time-partitioned keys:
//
//	<objectStoragePrefix>/<year>/<dayOfYear>/<hour>/<filename>
//
// The filename embeds a scan start-time token "_sYYYYDDDHHMMSS" (year,
// day-of-year, hour, minute, second, fixed width). The token is extracted
// positionally, never by free-form date parsing; see the objectstore
// package.
//
// # Fingerprints
//
// Requests are identified by a deterministic SHA-256 fingerprint of
// (channel, domain, mode, size hint, rounded timestamp). Timestamps round
// to the source's refresh granularity, 10 minutes for image products on
// the ABI scan cadence and one hour for raw data matching the bucket's
// hour partitions, so near-identical requests deduplicate in the cache.
//
// # Failure taxonomy
//
// Every acquisition failure is one of NetworkTransient, NetworkPermanent,
// DataCorrupt, or Configuration. Only Configuration may cross the facade
// as a Go error; the rest are folded into AcquisitionResult.FailureKind.
package domain
