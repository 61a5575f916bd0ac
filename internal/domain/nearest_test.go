package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/grid-feasibility-service/internal/geo"
)

func TestNearestStation_WorkedExample(t *testing.T) {
	s, dist, err := NearestStation(geo.LatLon{Lat: 49.141, Lon: 9.211}, exampleStations())
	require.NoError(t, err)
	assert.Equal(t, "A", s.ID)
	assert.InDelta(t, 132.9, dist, 1)
}

func TestNearestStation_Empty(t *testing.T) {
	_, _, err := NearestStation(geo.LatLon{Lat: 49.1, Lon: 9.2}, nil)
	assert.ErrorIs(t, err, ErrNoStationsAvailable)
}

func TestNearestStation_TieGoesToFirst(t *testing.T) {
	// Both stations are 0.001° of latitude from the query point.
	stations := []Station{
		station("north", 49.141, 9.2, 10),
		station("south", 49.139, 9.2, 10),
	}
	p := geo.LatLon{Lat: 49.140, Lon: 9.2}

	d0 := geo.Haversine(p, stations[0].Location)
	d1 := geo.Haversine(p, stations[1].Location)
	if d0 != d1 {
		t.Skipf("floating point made the distances differ: %v vs %v", d0, d1)
	}

	s, _, err := NearestStation(p, stations)
	require.NoError(t, err)
	assert.Equal(t, "north", s.ID)

	s, _, err = NearestStation(p, []Station{stations[1], stations[0]})
	require.NoError(t, err)
	assert.Equal(t, "south", s.ID)
}

func TestNearestStation_DuplicateLocationFirstWins(t *testing.T) {
	stations := []Station{
		station("x", 49.2, 9.3, 10),
		station("first", 49.14, 9.21, 10),
		station("second", 49.14, 9.21, 500),
	}
	s, _, err := NearestStation(geo.LatLon{Lat: 49.141, Lon: 9.211}, stations)
	require.NoError(t, err)
	assert.Equal(t, "first", s.ID)
}

func TestNearestStation_Deterministic(t *testing.T) {
	stations := heilbronnGrid()
	p := geo.LatLon{Lat: 49.137, Lon: 9.219}
	first, d1, err := NearestStation(p, stations)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		s, d, err := NearestStation(p, stations)
		require.NoError(t, err)
		assert.Equal(t, first.ID, s.ID)
		assert.Equal(t, d1, d)
	}
}

func TestNearestStation_MatchesBruteForceMinimum(t *testing.T) {
	stations := heilbronnGrid()
	for lat := 49.12; lat <= 49.15; lat += 0.0037 {
		for lon := 9.19; lon <= 9.24; lon += 0.0041 {
			p := geo.LatLon{Lat: lat, Lon: lon}
			s, dist, err := NearestStation(p, stations)
			require.NoError(t, err)
			for _, other := range stations {
				assert.LessOrEqual(t, dist, geo.Haversine(p, other.Location))
			}
			assert.Equal(t, geo.Haversine(p, s.Location), dist)
		}
	}
}
