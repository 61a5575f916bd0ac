// Package domain models low-voltage grid stations and decides whether a new
// connection fits into the remaining transformer capacity.
//
// # Data Source
//
// Station figures come from the grid operator's capacity workbook ("Kapa
// Stationen" for local transformer stations, "Kapa Umspannwerke" for the
// upstream substations). Each local station (ONS) row carries an installed
// transformer rating, the installed PV power behind it, the remaining
// transformer headroom, and the remaining headroom at a coincidence factor
// of 0.7. The adapters in internal/adapter/gridfile normalise those rows into
// [Station] values; this package never reads files.
//
// # Zoning
//
// The service area is split into one zone per station by nearest-station
// assignment (a Voronoi tessellation computed on a local metric projection).
// The tessellation is clipped to a mask, the convex hull of all stations
// grown by a fixed buffer (1.5 km by default), so no zone leaks into
// territory the operator does not serve. Duplicate station coordinates are
// removed first; fewer than three distinct locations cannot form a
// tessellation and yield [ErrInsufficientStations].
//
// Clip failures (non-finite or inflated geometry) follow one policy for the
// whole run, selected by [ClipFallback]: drop the cell (default) or keep the
// raw Voronoi cell. Cells that simply do not overlap the mask are always
// dropped.
//
// # Capacity Bands
//
// Remaining capacity maps to three bands with fixed, configurable thresholds:
//
//	low:    capacity <  50 kW   (constrained grid)
//	medium: capacity < 150 kW
//	high:   capacity >= 150 kW  (most headroom)
//
// Band colours live in [BandPolicy.Styles]. Earlier revisions of the map
// rendered low capacity both green and red; the default here is red for low,
// amber for medium, green for high.
//
// # Traffic Light
//
// A request is compared against the governing (nearest) station:
//
//	green:  requested <= remaining_safe
//	yellow: remaining_safe < requested <= remaining_raw
//	red:    requested >  remaining_raw
//
// remaining_raw is the station's remaining capacity. remaining_safe is raw
// minus [FeasibilityPolicy.SafetyMarginKW] (default 0), additionally capped
// by the coincidence-factor figure when the source data provides one. The
// outcome is monotone in the requested power for a fixed location.
//
// Requests whose nearest station is farther than the service radius (2 km by
// default) are rejected with [ErrNoStationFound] instead of being assigned to
// an arbitrarily distant station.
//
// # Voltage Level
//
// The verdict labels the connection level by requested power: below 135 kW
// low voltage (Niederspannung), below 5 MW medium voltage (Mittelspannung),
// otherwise high voltage (Hochspannung). For medium and high voltage the
// upstream substation's available feed-in capacity is reported for
// reference; it does not change the traffic light.
package domain
