package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/couchcryptid/grid-feasibility-service/internal/geo"
)

// Station is a local transformer station (Ortsnetzstation) with its remaining
// headroom. Capacities are in kW.
type Station struct {
	ID                string
	Location          geo.LatLon
	RemainingCapacity float64

	// Optional source figures. Nil when the source did not provide them.
	MaxCapacity           *float64
	CurrentLoadPV         *float64
	RemainingSafeCapacity *float64

	SubstationID string
}

// Substation is an upstream transformer substation (Umspannwerk).
type Substation struct {
	ID                string  `json:"id"`
	AvailableFeedInKW float64 `json:"available_feed_in_kw"`
}

// StationID accepts both JSON strings and JSON numbers.
type StationID string

// UnmarshalJSON decodes "17" and 17 to the same id.
func (id *StationID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StationID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("station id must be string or number: %w", err)
	}
	*id = StationID(n.String())
	return nil
}

// StationRecord is the wire shape of a station.
type StationRecord struct {
	ID                    StationID `json:"id"`
	Lat                   float64   `json:"lat"`
	Lon                   float64   `json:"lon"`
	RemainingCapacity     float64   `json:"remaining_capacity"`
	MaxCapacity           *float64  `json:"max_capacity,omitempty"`
	CurrentLoadPV         *float64  `json:"current_load_pv,omitempty"`
	RemainingSafeCapacity *float64  `json:"remaining_safe_capacity,omitempty"`
	SubstationID          string    `json:"substation_id,omitempty"`
}

// ToStation validates the record and converts it.
func (r StationRecord) ToStation() (Station, error) {
	s := Station{
		ID:                    string(r.ID),
		Location:              geo.LatLon{Lat: r.Lat, Lon: r.Lon},
		RemainingCapacity:     r.RemainingCapacity,
		MaxCapacity:           r.MaxCapacity,
		CurrentLoadPV:         r.CurrentLoadPV,
		RemainingSafeCapacity: r.RemainingSafeCapacity,
		SubstationID:          r.SubstationID,
	}
	if err := s.Validate(); err != nil {
		return Station{}, err
	}
	return s, nil
}

// Record converts the station back to its wire shape.
func (s Station) Record() StationRecord {
	return StationRecord{
		ID:                    StationID(s.ID),
		Lat:                   s.Location.Lat,
		Lon:                   s.Location.Lon,
		RemainingCapacity:     s.RemainingCapacity,
		MaxCapacity:           s.MaxCapacity,
		CurrentLoadPV:         s.CurrentLoadPV,
		RemainingSafeCapacity: s.RemainingSafeCapacity,
		SubstationID:          s.SubstationID,
	}
}

// Validate checks the station invariants.
func (s Station) Validate() error {
	if s.ID == "" {
		return invalid("id", "station id is empty")
	}
	if !s.Location.Valid() {
		return fmt.Errorf("station %s: %w", s.ID, invalid("location", "coordinates %v,%v out of range", s.Location.Lat, s.Location.Lon))
	}
	if !validCapacity(s.RemainingCapacity) {
		return fmt.Errorf("station %s remaining capacity %v: %w", s.ID, s.RemainingCapacity, ErrInvalidCapacity)
	}
	optional := []struct {
		name string
		v    *float64
	}{
		{"max capacity", s.MaxCapacity},
		{"current pv load", s.CurrentLoadPV},
		{"remaining safe capacity", s.RemainingSafeCapacity},
	}
	for _, o := range optional {
		if o.v != nil && !validCapacity(*o.v) {
			return fmt.Errorf("station %s %s %v: %w", s.ID, o.name, *o.v, ErrInvalidCapacity)
		}
	}
	return nil
}

func validCapacity(kw float64) bool {
	return !math.IsNaN(kw) && !math.IsInf(kw, 0) && kw >= 0
}

// DedupeByLocation drops stations whose coordinates equal an earlier
// station's. Input order is preserved and the first occurrence wins.
func DedupeByLocation(stations []Station) []Station {
	seen := make(map[geo.LatLon]struct{}, len(stations))
	out := make([]Station, 0, len(stations))
	for _, s := range stations {
		if _, ok := seen[s.Location]; ok {
			continue
		}
		seen[s.Location] = struct{}{}
		out = append(out, s)
	}
	return out
}

// GridSnapshot is an immutable view of the station data. Stations keep the
// source order, which decides nearest-station ties.
type GridSnapshot struct {
	Stations    []Station
	Substations map[string]Substation
	Version     string
}

// NewSnapshot validates the inputs and computes the content version.
// Duplicate station ids are rejected; duplicate coordinates are kept here and
// only collapsed for tessellation.
func NewSnapshot(stations []Station, substations []Substation) (*GridSnapshot, error) {
	ids := make(map[string]struct{}, len(stations))
	for _, s := range stations {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := ids[s.ID]; dup {
			return nil, invalid("id", "duplicate station id %q", s.ID)
		}
		ids[s.ID] = struct{}{}
	}

	subs := make(map[string]Substation, len(substations))
	for _, sub := range substations {
		if sub.ID == "" {
			return nil, invalid("substation id", "substation id is empty")
		}
		if !validCapacity(sub.AvailableFeedInKW) {
			return nil, fmt.Errorf("substation %s available capacity %v: %w", sub.ID, sub.AvailableFeedInKW, ErrInvalidCapacity)
		}
		subs[sub.ID] = sub
	}

	copied := make([]Station, len(stations))
	copy(copied, stations)

	return &GridSnapshot{
		Stations:    copied,
		Substations: subs,
		Version:     snapshotVersion(copied, subs),
	}, nil
}

// Substation returns the upstream substation of s, if known.
func (g *GridSnapshot) Substation(s Station) (Substation, bool) {
	if s.SubstationID == "" {
		return Substation{}, false
	}
	sub, ok := g.Substations[s.SubstationID]
	return sub, ok
}

// snapshotVersion hashes the normalized records, so identical inputs always
// produce the same version.
func snapshotVersion(stations []Station, subs map[string]Substation) string {
	h := sha256.New()
	for _, s := range stations {
		fmt.Fprintf(h, "s|%s|%s|%s|%s|%s|%s|%s|%s\n",
			s.ID,
			formatFloat(s.Location.Lat),
			formatFloat(s.Location.Lon),
			formatFloat(s.RemainingCapacity),
			formatOptional(s.MaxCapacity),
			formatOptional(s.CurrentLoadPV),
			formatOptional(s.RemainingSafeCapacity),
			s.SubstationID,
		)
	}
	keys := make([]string, 0, len(subs))
	for k := range subs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "u|%s|%s\n", k, formatFloat(subs[k].AvailableFeedInKW))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatOptional(f *float64) string {
	if f == nil {
		return "-"
	}
	return formatFloat(*f)
}
