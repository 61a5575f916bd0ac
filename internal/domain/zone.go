package domain

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/grid-feasibility-service/internal/geo"
)

// Zone is the part of the mask closer to its owning station than to any
// other station.
type Zone struct {
	OwningStationID   string
	RemainingCapacity float64
	Band              CapacityBand

	// Boundary is an open counter-clockwise ring; the first vertex is not
	// repeated at the end.
	Boundary []geo.LatLon

	// Unclipped is set when the clip failed and the raw Voronoi cell was
	// kept under ClipFallbackKeepUnclipped.
	Unclipped bool
}

// ZoneSet is one complete tessellation.
type ZoneSet struct {
	Zones []Zone
	Mask  []geo.LatLon

	// Stations counts the distinct station locations that seeded the run.
	Stations int
	// Dropped counts cells removed because they missed the mask or their
	// clip failed under ClipFallbackDrop.
	Dropped int
	// Fallbacks counts clip failures, whatever the policy did with them.
	Fallbacks int
}

// voronoiMarginMeters pads the Voronoi bounds beyond the mask.
const voronoiMarginMeters = 1000

// areaTolerance allows for floating point noise when comparing a clipped
// cell to its source.
const areaTolerance = 1e-6

var errClipFailed = errors.New("clip produced invalid geometry")

// Partitioner builds the zone tessellation.
type Partitioner struct {
	classifier Classifier
	zoning     ZoningPolicy
}

// NewPartitioner validates the policy and returns a partitioner.
func NewPartitioner(p Policy) (*Partitioner, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	return &Partitioner{
		classifier: NewClassifier(p.Bands),
		zoning:     p.Zoning,
	}, nil
}

// Classifier returns the classifier the partitioner bands zones with.
func (p *Partitioner) Classifier() Classifier { return p.classifier }

// Partition tessellates the stations. Stations sharing coordinates are
// collapsed to the first occurrence. The result depends only on the station
// list and the policy.
func (p *Partitioner) Partition(stations []Station) (ZoneSet, error) {
	if len(stations) == 0 {
		return ZoneSet{}, ErrNoStationsAvailable
	}
	distinct := DedupeByLocation(stations)
	if len(distinct) < 3 {
		return ZoneSet{}, fmt.Errorf("%d distinct station locations, need 3: %w", len(distinct), ErrInsufficientStations)
	}

	bands := make([]CapacityBand, len(distinct))
	locs := make([]geo.LatLon, len(distinct))
	for i, s := range distinct {
		band, err := p.classifier.Classify(s.RemainingCapacity)
		if err != nil {
			return ZoneSet{}, fmt.Errorf("station %s: %w", s.ID, err)
		}
		bands[i] = band
		locs[i] = s.Location
	}

	proj := geo.NewProjection(geo.Centroid(locs))
	seeds := proj.ForwardAll(locs)

	mask, err := geo.Buffer(seeds, p.zoning.MaskBufferMeters)
	if err != nil {
		// Collinear stations without a buffer span no area.
		return ZoneSet{}, fmt.Errorf("build mask: %v: %w", err, ErrInsufficientStations)
	}

	cells := geo.Voronoi(seeds, voronoiBounds(mask))

	set := ZoneSet{
		Mask:     proj.InverseRing(mask),
		Stations: len(distinct),
	}
	for _, cell := range cells {
		poly, unclipped, ok := p.clip(cell.Polygon, mask, &set)
		if !ok {
			continue
		}
		s := distinct[cell.SeedIndex]
		set.Zones = append(set.Zones, Zone{
			OwningStationID:   s.ID,
			RemainingCapacity: s.RemainingCapacity,
			Band:              bands[cell.SeedIndex],
			Boundary:          proj.InverseRing(poly),
			Unclipped:         unclipped,
		})
	}
	return set, nil
}

// clip applies the configured fallback to the result of clipCell.
func (p *Partitioner) clip(cell, mask geo.Polygon, set *ZoneSet) (geo.Polygon, bool, bool) {
	if cell.IsEmpty() {
		set.Dropped++
		return geo.Polygon{}, false, false
	}
	clipped, err := clipCell(cell, mask)
	if err == nil {
		if clipped.IsEmpty() {
			set.Dropped++
			return geo.Polygon{}, false, false
		}
		return clipped, false, true
	}

	set.Fallbacks++
	if p.zoning.ClipFallback == ClipFallbackKeepUnclipped && cell.IsFinite() {
		return cell, true, true
	}
	set.Dropped++
	return geo.Polygon{}, false, false
}

// clipCell intersects a Voronoi cell with the mask. An empty polygon with a
// nil error means the cell does not overlap the mask.
func clipCell(cell, mask geo.Polygon) (geo.Polygon, error) {
	clipped := geo.ClipToConvex(cell, mask)
	if clipped.IsEmpty() || clipped.Area() == 0 {
		return geo.Polygon{}, nil
	}
	if !clipped.IsFinite() {
		return geo.Polygon{}, errClipFailed
	}
	if clipped.Area() > cell.Area()*(1+areaTolerance)+areaTolerance {
		return geo.Polygon{}, errClipFailed
	}
	return clipped.EnsureCCW(), nil
}

// voronoiBounds is the mask's bounding box grown by 10% plus a fixed margin.
func voronoiBounds(mask geo.Polygon) geo.Polygon {
	lo, hi := mask.BoundingBox()
	padX := (hi.X-lo.X)*0.1 + voronoiMarginMeters
	padY := (hi.Y-lo.Y)*0.1 + voronoiMarginMeters
	return geo.Rect(geo.Pt(lo.X-padX, lo.Y-padY), geo.Pt(hi.X+padX, hi.Y+padY))
}
