package geo

import "math"

// ApproximateCircle returns a CCW polygon with the given number of segments
// whose vertices lie on the circle.
func ApproximateCircle(center Point, radius float64, segments int) Polygon {
	if segments < 3 {
		segments = 3
	}
	pts := make([]Point, segments)
	for i := 0; i < segments; i++ {
		angle := 2 * math.Pi * float64(i) / float64(segments)
		pts[i] = Point{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		}
	}
	return Polygon{Vertices: pts}
}

// ClipToConvex clips the subject polygon to a convex CCW clip polygon using
// the Sutherland-Hodgman algorithm. Returns the intersection polygon, which
// is empty when the two do not overlap.
func ClipToConvex(subject, clipper Polygon) Polygon {
	if subject.IsEmpty() || clipper.IsEmpty() {
		return Polygon{}
	}
	out := subject
	n := len(clipper.Vertices)
	for i := 0; i < n; i++ {
		out = ClipToHalfPlane(out, clipper.Vertices[i], clipper.Vertices[(i+1)%n])
		if out.IsEmpty() {
			return Polygon{}
		}
	}
	return out
}

// ClipToHalfPlane clips a polygon to the left side of the directed line from a to b.
func ClipToHalfPlane(poly Polygon, a, b Point) Polygon {
	if poly.IsEmpty() {
		return Polygon{}
	}
	n := len(poly.Vertices)
	output := make([]Point, 0, n+1)
	for i := 0; i < n; i++ {
		curr := poly.Vertices[i]
		next := poly.Vertices[(i+1)%n]
		currInside := isInsideEdge(curr, a, b)
		nextInside := isInsideEdge(next, a, b)

		switch {
		case currInside && nextInside:
			output = append(output, next)
		case currInside && !nextInside:
			if ix, ok := lineIntersection(curr, next, a, b); ok {
				output = append(output, ix)
			}
		case !currInside && nextInside:
			if ix, ok := lineIntersection(curr, next, a, b); ok {
				output = append(output, ix)
			}
			output = append(output, next)
		}
	}
	if len(output) < 3 {
		return Polygon{}
	}
	return Polygon{Vertices: output}
}

// isInsideEdge returns true if the point is on the inside (left) of the
// directed edge from edgeStart to edgeEnd.
func isInsideEdge(p, edgeStart, edgeEnd Point) bool {
	return (edgeEnd.X-edgeStart.X)*(p.Y-edgeStart.Y)-
		(edgeEnd.Y-edgeStart.Y)*(p.X-edgeStart.X) >= 0
}

// lineIntersection returns the intersection point of lines (p1→p2) and (p3→p4).
func lineIntersection(p1, p2, p3, p4 Point) (Point, bool) {
	d := (p1.X-p2.X)*(p3.Y-p4.Y) - (p1.Y-p2.Y)*(p3.X-p4.X)
	if math.Abs(d) < 1e-12 {
		return Point{}, false
	}
	t := ((p1.X-p3.X)*(p3.Y-p4.Y) - (p1.Y-p3.Y)*(p3.X-p4.X)) / d
	return Point{
		X: p1.X + t*(p2.X-p1.X),
		Y: p1.Y + t*(p2.Y-p1.Y),
	}, true
}
