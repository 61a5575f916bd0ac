package geo

import "math"

// Projection is a local equirectangular projection around an origin. X grows
// east and Y grows north, both in metres.
type Projection struct {
	origin LatLon
	cosLat float64
}

// NewProjection creates a projection centred on origin.
func NewProjection(origin LatLon) Projection {
	return Projection{origin: origin, cosLat: math.Cos(radians(origin.Lat))}
}

// Origin returns the projection centre.
func (p Projection) Origin() LatLon { return p.origin }

// Forward maps a coordinate to planar metres.
func (p Projection) Forward(ll LatLon) Point {
	return Point{
		X: EarthRadiusMeters * radians(ll.Lon-p.origin.Lon) * p.cosLat,
		Y: EarthRadiusMeters * radians(ll.Lat-p.origin.Lat),
	}
}

// Inverse maps planar metres back to a coordinate.
func (p Projection) Inverse(pt Point) LatLon {
	return LatLon{
		Lat: p.origin.Lat + degrees(pt.Y/EarthRadiusMeters),
		Lon: p.origin.Lon + degrees(pt.X/(EarthRadiusMeters*p.cosLat)),
	}
}

// ForwardAll projects every coordinate.
func (p Projection) ForwardAll(lls []LatLon) []Point {
	out := make([]Point, len(lls))
	for i, ll := range lls {
		out[i] = p.Forward(ll)
	}
	return out
}

// InverseRing un-projects a polygon's vertices.
func (p Projection) InverseRing(poly Polygon) []LatLon {
	out := make([]LatLon, len(poly.Vertices))
	for i, v := range poly.Vertices {
		out[i] = p.Inverse(v)
	}
	return out
}
