package geojson

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
	"github.com/couchcryptid/grid-feasibility-service/internal/geo"
)

type featureCollection struct {
	Type     string    `json:"type"`
	BBox     []float64 `json:"bbox"`
	Features []struct {
		Type     string `json:"type"`
		ID       string `json:"id"`
		Geometry struct {
			Type        string          `json:"type"`
			Coordinates [][][2]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

func sampleSet() domain.ZoneSet {
	return domain.ZoneSet{
		Zones: []domain.Zone{
			{
				OwningStationID:   "1001",
				RemainingCapacity: 30,
				Band:              domain.BandLow,
				Boundary: []geo.LatLon{
					{Lat: 49.13, Lon: 9.20}, {Lat: 49.13, Lon: 9.22}, {Lat: 49.15, Lon: 9.22},
				},
			},
			{
				OwningStationID:   "1002",
				RemainingCapacity: 180,
				Band:              domain.BandHigh,
				Boundary: []geo.LatLon{
					{Lat: 49.13, Lon: 9.22}, {Lat: 49.13, Lon: 9.24}, {Lat: 49.15, Lon: 9.24}, {Lat: 49.15, Lon: 9.22},
				},
			},
		},
		Mask: []geo.LatLon{{Lat: 49.12, Lon: 9.19}, {Lat: 49.12, Lon: 9.25}, {Lat: 49.16, Lon: 9.25}},
	}
}

func decode(t *testing.T, data []byte) featureCollection {
	t.Helper()
	var fc featureCollection
	require.NoError(t, json.Unmarshal(data, &fc))
	return fc
}

func TestMarshal_Zones(t *testing.T) {
	enc := NewEncoder(domain.NewClassifier(domain.DefaultPolicy().Bands), Options{})
	data, err := enc.Marshal(sampleSet())
	require.NoError(t, err)

	fc := decode(t, data)
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)

	f := fc.Features[0]
	assert.Equal(t, "Feature", f.Type)
	assert.Equal(t, "1001", f.ID)
	assert.Equal(t, "Polygon", f.Geometry.Type)
	require.Len(t, f.Geometry.Coordinates, 1)
	ring := f.Geometry.Coordinates[0]
	require.Len(t, ring, 4)
	assert.Equal(t, ring[0], ring[3], "ring is closed")
	assert.Equal(t, [2]float64{9.20, 49.13}, ring[0], "lon before lat")

	assert.Equal(t, "1001", f.Properties["owning_station_id"])
	assert.Equal(t, 30.0, f.Properties["remaining_capacity"])
	assert.Equal(t, "low", f.Properties["capacity_band"])
	assert.Equal(t, "#ef4444", f.Properties["color"])
	assert.Equal(t, 0.45, f.Properties["fill_opacity"])

	assert.Equal(t, "#10b981", fc.Features[1].Properties["color"])
	assert.Equal(t, []float64{9.20, 49.13, 9.24, 49.15}, fc.BBox)
}

func TestMarshal_IncludeMask(t *testing.T) {
	enc := NewEncoder(domain.NewClassifier(domain.DefaultPolicy().Bands), Options{IncludeMask: true})
	data, err := enc.Marshal(sampleSet())
	require.NoError(t, err)

	fc := decode(t, data)
	require.Len(t, fc.Features, 3)
	assert.Equal(t, "mask", fc.Features[2].Properties["kind"])
	assert.Equal(t, []float64{9.19, 49.12, 9.25, 49.16}, fc.BBox)
}

func TestMarshal_Empty(t *testing.T) {
	enc := NewEncoder(domain.NewClassifier(domain.DefaultPolicy().Bands), Options{})
	data, err := enc.Marshal(domain.ZoneSet{})
	require.NoError(t, err)
	fc := decode(t, data)
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Empty(t, fc.Features)
}

func TestMarshal_DegenerateRing(t *testing.T) {
	set := domain.ZoneSet{Zones: []domain.Zone{{OwningStationID: "x", Boundary: []geo.LatLon{{Lat: 1, Lon: 1}}}}}
	enc := NewEncoder(domain.NewClassifier(domain.DefaultPolicy().Bands), Options{})
	_, err := enc.Marshal(set)
	assert.Error(t, err)
}
