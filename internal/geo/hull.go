package geo

import (
	"cmp"
	"errors"
	"math"
	"slices"
)

// ErrDegenerateHull is returned when the points do not span a positive area.
var ErrDegenerateHull = errors.New("convex hull is degenerate")

// bufferSegments is the circle resolution used by Buffer.
const bufferSegments = 32

// ConvexHull returns the CCW convex hull of the points using Andrew's
// monotone chain. Collinear points on a hull edge are dropped. Collinear or
// coincident input yields ErrDegenerateHull.
func ConvexHull(pts []Point) (Polygon, error) {
	sorted := slices.Clone(pts)
	slices.SortFunc(sorted, func(a, b Point) int {
		if c := cmp.Compare(a.X, b.X); c != 0 {
			return c
		}
		return cmp.Compare(a.Y, b.Y)
	})
	sorted = slices.Compact(sorted)
	if len(sorted) < 3 {
		return Polygon{}, ErrDegenerateHull
	}

	hull := make([]Point, 0, 2*len(sorted))
	// lower chain, left to right
	for _, p := range sorted {
		for len(hull) >= 2 && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	// upper chain, right to left
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	// last point repeats the first
	hull = hull[:len(hull)-1]

	poly := Polygon{Vertices: hull}
	if len(hull) < 3 || poly.Area() == 0 {
		return Polygon{}, ErrDegenerateHull
	}
	return poly, nil
}

// turn is the z component of (b-a) x (c-a): positive for a left turn.
func turn(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// Buffer returns the convex hull of pts grown outward by radius metres. The
// circle is approximated by a circumscribed polygon so every point within
// radius of the input is covered. Collinear input is fine as long as
// radius is positive.
func Buffer(pts []Point, radius float64) (Polygon, error) {
	base := pts
	if hull, err := ConvexHull(pts); err == nil {
		base = hull.Vertices
	}
	if radius <= 0 {
		return ConvexHull(base)
	}

	r := radius / math.Cos(math.Pi/bufferSegments)
	offsets := ApproximateCircle(Point{}, r, bufferSegments).Vertices

	expanded := make([]Point, 0, len(base)*len(offsets))
	for _, v := range base {
		for _, o := range offsets {
			expanded = append(expanded, v.Add(o))
		}
	}
	return ConvexHull(expanded)
}
