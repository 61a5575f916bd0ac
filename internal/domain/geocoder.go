package domain

import (
	"context"

	"github.com/couchcryptid/grid-feasibility-service/internal/geo"
)

// GeocodingResult contains location data returned by a geocoding provider.
// The zero value means "no match".
type GeocodingResult struct {
	Location    geo.LatLon
	DisplayName string
	Provider    string
}

// Found reports whether the provider returned a match.
func (r GeocodingResult) Found() bool {
	return r.Location.Lat != 0 || r.Location.Lon != 0
}

// Geocoder resolves free-text addresses to coordinates.
type Geocoder interface {
	// Geocode returns the best match for the address. A zero result with a
	// nil error means the provider found nothing.
	Geocode(ctx context.Context, address string) (GeocodingResult, error)
}
