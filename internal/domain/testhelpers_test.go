package domain

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/grid-feasibility-service/internal/geo"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(f float64) *float64 { return &f }

func station(id string, lat, lon, remaining float64) Station {
	return Station{ID: id, Location: geo.LatLon{Lat: lat, Lon: lon}, RemainingCapacity: remaining}
}

func mustSnapshot(t *testing.T, stations []Station, subs ...Substation) *GridSnapshot {
	t.Helper()
	snap, err := NewSnapshot(stations, subs)
	require.NoError(t, err)
	return snap
}

func mustEngine(t *testing.T, p Policy) *Engine {
	t.Helper()
	e, err := NewEngine(p)
	require.NoError(t, err)
	return e
}

// exampleStations are the two stations of the documented worked example.
func exampleStations() []Station {
	return []Station{
		station("A", 49.140, 9.210, 30),
		station("B", 49.150, 9.230, 180),
	}
}

// heilbronnGrid is a 4x3 grid of stations with ~700 m spacing and varied
// capacities.
func heilbronnGrid() []Station {
	caps := []float64{0, 20, 49.9, 50, 80, 149, 150, 220, 400, 10, 95, 600}
	var out []Station
	n := 0
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			out = append(out, station(
				string(rune('a'+n)),
				49.13+float64(row)*0.0063+float64(col%2)*0.001,
				9.20+float64(col)*0.0096,
				caps[n],
			))
			n++
		}
	}
	return out
}
