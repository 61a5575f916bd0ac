package geo

import "sort"

// VoronoiCell is one cell of a Voronoi diagram.
type VoronoiCell struct {
	SeedIndex int     // index into the seed slice
	Seed      Point   // the seed point
	Polygon   Polygon // the cell boundary, empty if the seed lies outside bounds
}

// Voronoi computes the Voronoi diagram of the seeds restricted to the convex
// CCW bounds polygon. Seeds must be distinct; coincident seeds produce
// overlapping cells.
//
// Cells are built by half-plane intersection. Other seeds are visited in
// order of distance and the scan stops once the bisector of the next seed
// lies beyond the farthest vertex of the current cell, so the cost per cell
// stays close to the number of true neighbours.
func Voronoi(seeds []Point, bounds Polygon) []VoronoiCell {
	n := len(seeds)
	cells := make([]VoronoiCell, n)
	for i := range seeds {
		cells[i] = VoronoiCell{
			SeedIndex: i,
			Seed:      seeds[i],
			Polygon:   voronoiCell(i, seeds, bounds),
		}
	}
	return cells
}

func voronoiCell(seedIdx int, seeds []Point, bounds Polygon) Polygon {
	seed := seeds[seedIdx]

	others := make([]int, 0, len(seeds)-1)
	for j := range seeds {
		if j != seedIdx {
			others = append(others, j)
		}
	}
	sort.SliceStable(others, func(a, b int) bool {
		return seed.Distance(seeds[others[a]]) < seed.Distance(seeds[others[b]])
	})

	cell := bounds
	for _, j := range others {
		other := seeds[j]
		d := seed.Distance(other)
		if d == 0 {
			continue
		}
		if d/2 > cell.MaxDistanceTo(seed) {
			break
		}
		mid := MidPoint(seed, other)
		dir := other.Sub(seed).Perp()
		cell = ClipToHalfPlane(cell, mid, mid.Add(dir))
		if cell.IsEmpty() {
			break
		}
	}
	return cell
}
