package domain

import "fmt"

// ProductDomain is the spatial scan pattern a request covers.
type ProductDomain string

const (
	FullDisk   ProductDomain = "FULL_DISK"
	CONUS      ProductDomain = "CONUS"
	Mesoscale1 ProductDomain = "MESOSCALE_1"
	Mesoscale2 ProductDomain = "MESOSCALE_2"
)

// ProductPaths holds the storage and web addressing for one scan domain.
type ProductPaths struct {
	// ObjectStoragePrefix is the bucket prefix for L1b radiance objects.
	ObjectStoragePrefix string
	// WebPathSegment is the path component used by the imagery CDNs.
	WebPathSegment string
}

var productPaths = map[ProductDomain]ProductPaths{
	FullDisk:   {ObjectStoragePrefix: "ABI-L1b-RadF", WebPathSegment: "FD"},
	CONUS:      {ObjectStoragePrefix: "ABI-L1b-RadC", WebPathSegment: "CONUS"},
	Mesoscale1: {ObjectStoragePrefix: "ABI-L1b-RadM1", WebPathSegment: "M1"},
	Mesoscale2: {ObjectStoragePrefix: "ABI-L1b-RadM2", WebPathSegment: "M2"},
}

// ProductDomains returns every declared scan domain.
func ProductDomains() []ProductDomain {
	return []ProductDomain{FullDisk, CONUS, Mesoscale1, Mesoscale2}
}

// ResolveProductPaths maps a declared scan domain to its addressing pair.
// Domains are a closed set, so an undeclared value is a programmer error
// and returns a *ConfigurationError.
func ResolveProductPaths(d ProductDomain) (ProductPaths, error) {
	p, ok := productPaths[d]
	if !ok {
		return ProductPaths{}, &ConfigurationError{Reason: fmt.Sprintf("undeclared product domain %q", d)}
	}
	return p, nil
}
