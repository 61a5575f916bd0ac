// Package geojson renders zone tessellations as GeoJSON feature collections.
package geojson

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
	"github.com/couchcryptid/grid-feasibility-service/internal/geo"
)

// Options controls the encoded output.
type Options struct {
	// IncludeMask adds the service mask as an extra feature with kind "mask".
	IncludeMask bool
}

// Encoder turns zones into GeoJSON using the classifier's band styles.
type Encoder struct {
	classifier domain.Classifier
	opts       Options
}

// NewEncoder creates an encoder.
func NewEncoder(classifier domain.Classifier, opts Options) *Encoder {
	return &Encoder{classifier: classifier, opts: opts}
}

// FeatureCollection builds the collection. Rings are closed and wound
// counter-clockwise as RFC 7946 requires for exterior rings.
func (e *Encoder) FeatureCollection(set domain.ZoneSet) (*geojson.FeatureCollection, error) {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(set.Zones)+1)}
	for _, z := range set.Zones {
		poly, err := polygon(z.Boundary)
		if err != nil {
			return nil, fmt.Errorf("zone %s: %w", z.OwningStationID, err)
		}
		style := e.classifier.Style(z.Band)
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       z.OwningStationID,
			Geometry: poly,
			Properties: map[string]any{
				"kind":               "zone",
				"owning_station_id":  z.OwningStationID,
				"remaining_capacity": z.RemainingCapacity,
				"capacity_band":      string(z.Band),
				"color":              style.Color,
				"fill_opacity":       style.FillOpacity,
				"unclipped":          z.Unclipped,
			},
		})
	}

	if e.opts.IncludeMask && len(set.Mask) > 0 {
		poly, err := polygon(set.Mask)
		if err != nil {
			return nil, fmt.Errorf("mask: %w", err)
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         "mask",
			Geometry:   poly,
			Properties: map[string]any{"kind": "mask"},
		})
	}

	if len(fc.Features) > 0 {
		bounds := geom.NewBounds(geom.XY)
		for _, f := range fc.Features {
			bounds.Extend(f.Geometry)
		}
		fc.BBox = bounds
	}
	return fc, nil
}

// Marshal encodes the collection as JSON.
func (e *Encoder) Marshal(set domain.ZoneSet) ([]byte, error) {
	fc, err := e.FeatureCollection(set)
	if err != nil {
		return nil, err
	}
	return json.Marshal(fc)
}

// polygon converts an open ring to a closed lon/lat go-geom polygon.
func polygon(ring []geo.LatLon) (*geom.Polygon, error) {
	if len(ring) < 3 {
		return nil, fmt.Errorf("ring has %d vertices, need at least 3", len(ring))
	}
	coords := make([]geom.Coord, 0, len(ring)+1)
	for _, ll := range ring {
		coords = append(coords, geom.Coord{ll.Lon, ll.Lat})
	}
	coords = append(coords, coords[0])

	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{coords})
	if err != nil {
		return nil, err
	}
	return poly, nil
}
