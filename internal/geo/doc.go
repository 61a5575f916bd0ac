// Package geo holds the spatial math behind station zoning: great-circle
// distance on WGS-84 coordinates, a local metric projection, and planar
// polygon operations (half-plane and convex clipping, Voronoi cells, convex
// hulls and buffers).
//
// Planar work happens in metres on a local equirectangular projection centred
// on the station set. At city scale (tens of kilometres) the projection error
// against the haversine distance stays well below a metre, which keeps the
// Voronoi cells consistent with nearest-station lookups.
package geo
