package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/couchcryptid/grid-feasibility-service/internal/geo"
)

// ConnectionType distinguishes consumption from generation.
type ConnectionType string

const (
	ConnectionLoad   ConnectionType = "load"
	ConnectionFeedIn ConnectionType = "feed_in"
)

// ParseConnectionType accepts the canonical names and the legacy
// consumer/producer aliases, case-insensitively.
func ParseConnectionType(s string) (ConnectionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "load", "consumer":
		return ConnectionLoad, nil
	case "feed_in", "feed-in", "producer":
		return ConnectionFeedIn, nil
	default:
		return "", invalid("type", "unknown connection type %q, want load or feed_in", s)
	}
}

// TrafficLight is the feasibility outcome.
type TrafficLight string

const (
	TrafficLightGreen  TrafficLight = "green"
	TrafficLightYellow TrafficLight = "yellow"
	TrafficLightRed    TrafficLight = "red"
)

// GridLevel is the voltage level a connection of the requested size lands on.
type GridLevel struct {
	Label             string
	Connection        string
	NextSteps         string
	reportsSubstation bool
}

var (
	GridLevelLow = GridLevel{
		Label:      "Niederspannung (NS)",
		Connection: "Hausanschluss / Niederspannungsnetz",
		NextSteps:  "Standardanmeldung über Installateurverzeichnis.",
	}
	GridLevelMedium = GridLevel{
		Label:             "Mittelspannung (MS)",
		Connection:        "Kundenstation am Mittelspannungsnetz",
		NextSteps:         "Anfrage für Mittelspannungsanschluss erforderlich. Planung einer Trafostation.",
		reportsSubstation: true,
	}
	GridLevelHigh = GridLevel{
		Label:             "Hochspannung (HS)",
		Connection:        "Umspannwerk / Hochspannungsnetz",
		NextSteps:         "Individuelle Netzstudie erforderlich. Bitte kontaktieren Sie den Netzbetreiber direkt.",
		reportsSubstation: true,
	}
)

// FeasibilityRequest asks whether RequestedPowerKW can be connected at Location.
type FeasibilityRequest struct {
	Location         geo.LatLon
	RequestedPowerKW float64
	ConnectionType   ConnectionType
}

// RequestRecord is the wire shape of a feasibility request.
type RequestRecord struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	KWRequested float64 `json:"kw_requested"`
	Type        string  `json:"type"`
}

// ToRequest converts the record. Only the connection type is checked here;
// the engine validates ranges.
func (r RequestRecord) ToRequest() (FeasibilityRequest, error) {
	ct, err := ParseConnectionType(r.Type)
	if err != nil {
		return FeasibilityRequest{}, err
	}
	return FeasibilityRequest{
		Location:         geo.LatLon{Lat: r.Lat, Lon: r.Lon},
		RequestedPowerKW: r.KWRequested,
		ConnectionType:   ct,
	}, nil
}

// Verdict is the outcome of a feasibility check. Field order is the JSON
// output order; the encoding is deterministic for identical inputs.
type Verdict struct {
	StationLat         float64        `json:"station_lat"`
	StationLon         float64        `json:"station_lon"`
	GoverningStationID string         `json:"nearest_station_id"`
	DistanceMeters     float64        `json:"distance_meters"`
	TrafficLight       TrafficLight   `json:"traffic_light"`
	RemainingSafeKW    float64        `json:"remaining_safe"`
	RemainingRawKW     float64        `json:"remaining_raw"`
	GridLevel          string         `json:"grid_level"`
	KWRequested        float64        `json:"kw_requested"`
	ConnectionType     ConnectionType `json:"connection_type"`
	ConnectionScope    string         `json:"connection_scope,omitempty"`
	NextSteps          string         `json:"next_steps,omitempty"`

	MaxCapacity           *float64 `json:"max_capacity,omitempty"`
	CurrentLoadPV         *float64 `json:"current_load_pv,omitempty"`
	SubstationID          string   `json:"substation_id,omitempty"`
	SubstationAvailableKW *float64 `json:"substation_available_kw,omitempty"`
}

// Engine renders feasibility verdicts. It holds only its policy and is safe
// for concurrent use.
type Engine struct {
	policy Policy
}

// NewEngine validates the policy and returns an engine.
func NewEngine(p Policy) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	return &Engine{policy: p}, nil
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy { return e.policy }

// Validate checks a request against the service area and value ranges.
func (e *Engine) Validate(req FeasibilityRequest) error {
	loc := req.Location
	if !loc.Valid() {
		return invalid("location", "coordinates %v,%v are not valid WGS-84", loc.Lat, loc.Lon)
	}
	if !e.policy.ServiceArea.Contains(loc) {
		a := e.policy.ServiceArea
		return invalid("location", "coordinates %v,%v outside service area lat %v..%v lon %v..%v",
			loc.Lat, loc.Lon, a.MinLat, a.MaxLat, a.MinLon, a.MaxLon)
	}
	if !finite(req.RequestedPowerKW) || req.RequestedPowerKW <= 0 {
		return invalid("kw_requested", "must be a positive number, got %v", req.RequestedPowerKW)
	}
	switch req.ConnectionType {
	case ConnectionLoad, ConnectionFeedIn:
	default:
		return invalid("type", "unknown connection type %q", req.ConnectionType)
	}
	return nil
}

// Evaluate decides the traffic light for req against the snapshot. It does
// not modify the snapshot and returns identical verdicts for identical
// inputs.
func (e *Engine) Evaluate(req FeasibilityRequest, snap *GridSnapshot) (Verdict, error) {
	if err := e.Validate(req); err != nil {
		return Verdict{}, err
	}
	if snap == nil {
		return Verdict{}, ErrNoStationsAvailable
	}

	station, dist, err := NearestStation(req.Location, snap.Stations)
	if err != nil {
		return Verdict{}, err
	}
	if r := e.policy.Feasibility.MaxServiceRadiusMeters; r > 0 && dist > r {
		return Verdict{}, fmt.Errorf("nearest station %s is %.0f m away, limit %.0f m: %w",
			station.ID, dist, r, ErrNoStationFound)
	}

	raw := station.RemainingCapacity
	safe := e.safeCapacity(station)
	level := e.gridLevel(req.RequestedPowerKW)

	v := Verdict{
		StationLat:         station.Location.Lat,
		StationLon:         station.Location.Lon,
		GoverningStationID: station.ID,
		DistanceMeters:     math.Round(dist*100) / 100,
		TrafficLight:       trafficLight(req.RequestedPowerKW, safe, raw),
		RemainingSafeKW:    safe,
		RemainingRawKW:     raw,
		GridLevel:          level.Label,
		KWRequested:        req.RequestedPowerKW,
		ConnectionType:     req.ConnectionType,
		ConnectionScope:    level.Connection,
		NextSteps:          level.NextSteps,
		MaxCapacity:        station.MaxCapacity,
		CurrentLoadPV:      station.CurrentLoadPV,
		SubstationID:       station.SubstationID,
	}
	if level.reportsSubstation {
		if sub, ok := snap.Substation(station); ok {
			kw := sub.AvailableFeedInKW
			v.SubstationAvailableKW = &kw
		}
	}
	return v, nil
}

// safeCapacity is raw minus the margin, capped by the station's own safe
// figure when enabled, and clamped to [0, raw].
func (e *Engine) safeCapacity(s Station) float64 {
	raw := s.RemainingCapacity
	safe := raw - e.policy.Feasibility.SafetyMarginKW
	if e.policy.Feasibility.UseStationSafeCapacity && s.RemainingSafeCapacity != nil {
		safe = math.Min(safe, *s.RemainingSafeCapacity)
	}
	return math.Max(0, math.Min(safe, raw))
}

func (e *Engine) gridLevel(kw float64) GridLevel {
	switch {
	case kw < e.policy.Feasibility.MediumVoltageFromKW:
		return GridLevelLow
	case kw < e.policy.Feasibility.HighVoltageFromKW:
		return GridLevelMedium
	default:
		return GridLevelHigh
	}
}

func trafficLight(kw, safe, raw float64) TrafficLight {
	switch {
	case kw <= safe:
		return TrafficLightGreen
	case kw <= raw:
		return TrafficLightYellow
	default:
		return TrafficLightRed
	}
}
