package osm

import (
	"context"
	"errors"

	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
)

// Chain tries geocoders in order and returns the first match. It fails only
// when no provider matched and at least one returned an error.
type Chain []domain.Geocoder

// Geocode implements domain.Geocoder.
func (c Chain) Geocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	var errs []error
	for _, g := range c {
		res, err := g.Geocode(ctx, address)
		if err != nil {
			if ctx.Err() != nil {
				return domain.GeocodingResult{}, ctx.Err()
			}
			errs = append(errs, err)
			continue
		}
		if res.Found() {
			return res, nil
		}
	}
	return domain.GeocodingResult{}, errors.Join(errs...)
}
