package domain

import "github.com/couchcryptid/grid-feasibility-service/internal/geo"

// NearestStation returns the station closest to point by great-circle
// distance, together with that distance in metres. The comparison is strict,
// so among equidistant stations the one listed first wins.
func NearestStation(point geo.LatLon, stations []Station) (Station, float64, error) {
	idx, dist, err := nearestIndex(point, stations)
	if err != nil {
		return Station{}, 0, err
	}
	return stations[idx], dist, nil
}

func nearestIndex(point geo.LatLon, stations []Station) (int, float64, error) {
	if len(stations) == 0 {
		return -1, 0, ErrNoStationsAvailable
	}
	best := 0
	bestDist := geo.Haversine(point, stations[0].Location)
	for i := 1; i < len(stations); i++ {
		if d := geo.Haversine(point, stations[i].Location); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist, nil
}
