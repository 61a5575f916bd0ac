package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/grid-feasibility-service/internal/geo"
)

func mustPartitioner(t *testing.T, p Policy) *Partitioner {
	t.Helper()
	part, err := NewPartitioner(p)
	require.NoError(t, err)
	return part
}

// projected re-projects a partition result into metres around the same origin
// the partitioner used.
func projected(stations []Station, set ZoneSet) (geo.Projection, geo.Polygon, []geo.Polygon) {
	locs := make([]geo.LatLon, 0, len(stations))
	for _, s := range DedupeByLocation(stations) {
		locs = append(locs, s.Location)
	}
	proj := geo.NewProjection(geo.Centroid(locs))
	mask := geo.Polygon{Vertices: proj.ForwardAll(set.Mask)}
	zones := make([]geo.Polygon, len(set.Zones))
	for i, z := range set.Zones {
		zones[i] = geo.Polygon{Vertices: proj.ForwardAll(z.Boundary)}
	}
	return proj, mask, zones
}

func TestPartition_InsufficientStations(t *testing.T) {
	part := mustPartitioner(t, DefaultPolicy())

	_, err := part.Partition(exampleStations())
	assert.ErrorIs(t, err, ErrInsufficientStations)

	dupes := append(exampleStations(), station("C", 49.140, 9.210, 5))
	_, err = part.Partition(dupes)
	assert.ErrorIs(t, err, ErrInsufficientStations, "duplicates do not count")

	_, err = part.Partition(nil)
	assert.ErrorIs(t, err, ErrNoStationsAvailable)
}

func TestPartition_CollinearWithoutBuffer(t *testing.T) {
	p := DefaultPolicy()
	p.Zoning.MaskBufferMeters = 0
	stations := []Station{
		station("a", 49.14, 9.20, 10),
		station("b", 49.14, 9.21, 10),
		station("c", 49.14, 9.22, 10),
	}
	_, err := mustPartitioner(t, p).Partition(stations)
	assert.ErrorIs(t, err, ErrInsufficientStations)
}

func TestPartition_CollinearWithBuffer(t *testing.T) {
	stations := []Station{
		station("a", 49.14, 9.20, 10),
		station("b", 49.14, 9.21, 100),
		station("c", 49.14, 9.22, 200),
	}
	set, err := mustPartitioner(t, DefaultPolicy()).Partition(stations)
	require.NoError(t, err)
	assert.Len(t, set.Zones, 3)
}

func TestPartition_CoversMaskWithoutOverlap(t *testing.T) {
	stations := heilbronnGrid()
	set, err := mustPartitioner(t, DefaultPolicy()).Partition(stations)
	require.NoError(t, err)
	require.Len(t, set.Zones, len(stations))
	assert.Equal(t, len(stations), set.Stations)
	assert.Zero(t, set.Dropped)
	assert.Zero(t, set.Fallbacks)

	proj, mask, zones := projected(stations, set)

	var total float64
	for _, z := range zones {
		total += z.Area()
	}
	assert.InDelta(t, mask.Area(), total, mask.Area()*1e-6, "zones tile the mask")

	seeds := proj.ForwardAll(locations(stations))
	lo, hi := mask.BoundingBox()
	checked := 0
	for x := lo.X; x <= hi.X; x += 97 {
		for y := lo.Y; y <= hi.Y; y += 89 {
			pt := geo.Pt(x, y)
			if !mask.Contains(pt) || nearTie(pt, seeds, 1) {
				continue
			}
			owners := 0
			for i, z := range zones {
				if z.Contains(pt) {
					owners++
					assert.Equal(t, stations[nearestSeed(pt, seeds)].ID, set.Zones[i].OwningStationID)
				}
			}
			assert.Equal(t, 1, owners, "point %v owned by %d zones", pt, owners)
			checked++
		}
	}
	assert.Greater(t, checked, 100)
}

func TestPartition_ZoneAttributes(t *testing.T) {
	stations := heilbronnGrid()
	set, err := mustPartitioner(t, DefaultPolicy()).Partition(stations)
	require.NoError(t, err)

	byID := make(map[string]Station)
	for _, s := range stations {
		byID[s.ID] = s
	}
	c := NewClassifier(DefaultPolicy().Bands)
	for _, z := range set.Zones {
		s, ok := byID[z.OwningStationID]
		require.True(t, ok)
		assert.Equal(t, s.RemainingCapacity, z.RemainingCapacity)
		want, err := c.Classify(s.RemainingCapacity)
		require.NoError(t, err)
		assert.Equal(t, want, z.Band)
		assert.False(t, z.Unclipped)
		assert.GreaterOrEqual(t, len(z.Boundary), 3)
	}
}

func TestPartition_ZonesContainTheirStation(t *testing.T) {
	stations := heilbronnGrid()
	set, err := mustPartitioner(t, DefaultPolicy()).Partition(stations)
	require.NoError(t, err)
	proj, _, zones := projected(stations, set)

	for i, z := range set.Zones {
		for _, s := range stations {
			if s.ID == z.OwningStationID {
				assert.True(t, zones[i].Contains(proj.Forward(s.Location)), "zone %s", s.ID)
			}
		}
	}
}

func TestPartition_MaskBufferDistance(t *testing.T) {
	stations := heilbronnGrid()
	set, err := mustPartitioner(t, DefaultPolicy()).Partition(stations)
	require.NoError(t, err)
	_, mask, _ := projected(stations, set)

	proj := geo.NewProjection(geo.Centroid(locations(stations)))
	for _, s := range stations {
		p := proj.Forward(s.Location)
		for _, angle := range []float64{0, 1, 2, 3, 4, 5} {
			edge := p.Add(geo.Pt(math.Cos(angle), math.Sin(angle)).Scale(1499))
			assert.True(t, mask.Contains(edge), "1499 m from %s", s.ID)
		}
	}
}

func TestPartition_DuplicateLocationKeepsFirst(t *testing.T) {
	stations := append(heilbronnGrid(), station("dup", 49.13, 9.20, 999))
	set, err := mustPartitioner(t, DefaultPolicy()).Partition(stations)
	require.NoError(t, err)
	for _, z := range set.Zones {
		assert.NotEqual(t, "dup", z.OwningStationID)
	}
	assert.Len(t, set.Zones, len(stations)-1)
}

func TestPartition_InvalidCapacity(t *testing.T) {
	stations := heilbronnGrid()
	stations[2].RemainingCapacity = -1
	_, err := mustPartitioner(t, DefaultPolicy()).Partition(stations)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestPartition_Deterministic(t *testing.T) {
	part := mustPartitioner(t, DefaultPolicy())
	a, err := part.Partition(heilbronnGrid())
	require.NoError(t, err)
	b, err := part.Partition(heilbronnGrid())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestClipCell(t *testing.T) {
	mask := geo.Rect(geo.Pt(0, 0), geo.Pt(10, 10))

	inside := geo.Rect(geo.Pt(2, 2), geo.Pt(4, 4))
	got, err := clipCell(inside, mask)
	require.NoError(t, err)
	assert.InDelta(t, 4, got.Area(), 1e-9)

	straddling := geo.Rect(geo.Pt(5, 5), geo.Pt(15, 15))
	got, err = clipCell(straddling, mask)
	require.NoError(t, err)
	assert.InDelta(t, 25, got.Area(), 1e-9)

	outside := geo.Rect(geo.Pt(20, 20), geo.Pt(30, 30))
	got, err = clipCell(outside, mask)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())

	broken := geo.NewPolygon(geo.Pt(1, 1), geo.Pt(math.NaN(), 2), geo.Pt(3, 5))
	_, err = clipCell(broken, mask)
	assert.ErrorIs(t, err, errClipFailed)
}

func TestPartitioner_ClipFallbackPolicy(t *testing.T) {
	mask := geo.Rect(geo.Pt(0, 0), geo.Pt(10, 10))
	broken := geo.NewPolygon(geo.Pt(1, 1), geo.Pt(math.NaN(), 2), geo.Pt(3, 5))
	outside := geo.Rect(geo.Pt(20, 20), geo.Pt(30, 30))

	drop := mustPartitioner(t, DefaultPolicy())
	var set ZoneSet
	_, _, ok := drop.clip(broken, mask, &set)
	assert.False(t, ok)
	assert.Equal(t, 1, set.Fallbacks)
	assert.Equal(t, 1, set.Dropped)

	p := DefaultPolicy()
	p.Zoning.ClipFallback = ClipFallbackKeepUnclipped
	keep := mustPartitioner(t, p)

	// Non-finite cells cannot be kept even under keep_unclipped.
	set = ZoneSet{}
	_, _, ok = keep.clip(broken, mask, &set)
	assert.False(t, ok)

	// Cells that miss the mask are always dropped, whatever the policy.
	set = ZoneSet{}
	_, _, ok = keep.clip(outside, mask, &set)
	assert.False(t, ok)
	assert.Equal(t, 0, set.Fallbacks)
	assert.Equal(t, 1, set.Dropped)
}

func TestVoronoiBounds_ContainMask(t *testing.T) {
	mask := geo.Rect(geo.Pt(-500, -200), geo.Pt(500, 200))
	b := voronoiBounds(mask)
	lo, hi := b.BoundingBox()
	assert.InDelta(t, -1600, lo.X, 1e-9)
	assert.InDelta(t, -1240, lo.Y, 1e-9)
	assert.InDelta(t, 1600, hi.X, 1e-9)
	assert.InDelta(t, 1240, hi.Y, 1e-9)
}

func locations(stations []Station) []geo.LatLon {
	out := make([]geo.LatLon, len(stations))
	for i, s := range stations {
		out[i] = s.Location
	}
	return out
}

func nearestSeed(pt geo.Point, seeds []geo.Point) int {
	best := 0
	for i := 1; i < len(seeds); i++ {
		if pt.Distance(seeds[i]) < pt.Distance(seeds[best]) {
			best = i
		}
	}
	return best
}

// nearTie reports whether pt is within tol metres of a cell boundary.
func nearTie(pt geo.Point, seeds []geo.Point, tol float64) bool {
	d1, d2 := math.Inf(1), math.Inf(1)
	for _, s := range seeds {
		d := pt.Distance(s)
		switch {
		case d < d1:
			d1, d2 = d, d1
		case d < d2:
			d2 = d
		}
	}
	return d2-d1 < tol
}
