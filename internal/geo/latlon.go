package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by Haversine.
const EarthRadiusMeters = 6_371_000.0

// LatLon is a WGS-84 coordinate in decimal degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both components are finite and within the WGS-84 ranges.
func (ll LatLon) Valid() bool {
	if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lon) || math.IsInf(ll.Lat, 0) || math.IsInf(ll.Lon, 0) {
		return false
	}
	return ll.Lat >= -90 && ll.Lat <= 90 && ll.Lon >= -180 && ll.Lon <= 180
}

// Haversine returns the great-circle distance between a and b in metres.
func Haversine(a, b LatLon) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dPhi := radians(b.Lat - a.Lat)
	dLambda := radians(b.Lon - a.Lon)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda

	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Centroid returns the arithmetic mean of the coordinates. Good enough as a
// projection origin for a city-sized point set; not a geodesic centroid.
func Centroid(points []LatLon) LatLon {
	if len(points) == 0 {
		return LatLon{}
	}
	var lat, lon float64
	for _, p := range points {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(points))
	return LatLon{Lat: lat / n, Lon: lon / n}
}

// BBox is a lat/lon aligned bounding box.
type BBox struct {
	MinLat float64 `json:"min_lat" yaml:"min_lat"`
	MinLon float64 `json:"min_lon" yaml:"min_lon"`
	MaxLat float64 `json:"max_lat" yaml:"max_lat"`
	MaxLon float64 `json:"max_lon" yaml:"max_lon"`
}

// Contains reports whether ll lies inside the box, edges included.
func (b BBox) Contains(ll LatLon) bool {
	return ll.Lat >= b.MinLat && ll.Lat <= b.MaxLat && ll.Lon >= b.MinLon && ll.Lon <= b.MaxLon
}

// Valid reports whether the corners are valid coordinates spanning a
// non-empty box.
func (b BBox) Valid() bool {
	lo := LatLon{Lat: b.MinLat, Lon: b.MinLon}
	hi := LatLon{Lat: b.MaxLat, Lon: b.MaxLon}
	return lo.Valid() && hi.Valid() && b.MinLat < b.MaxLat && b.MinLon < b.MaxLon
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
