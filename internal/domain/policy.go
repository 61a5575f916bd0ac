package domain

import (
	"errors"
	"fmt"
	"math"

	"github.com/couchcryptid/grid-feasibility-service/internal/geo"
)

// Policy collects every tunable threshold of the engine. It is loaded once
// at startup and passed by value; nothing reads thresholds from globals.
type Policy struct {
	Bands       BandPolicy        `yaml:"capacity_bands"`
	Feasibility FeasibilityPolicy `yaml:"feasibility"`
	Zoning      ZoningPolicy      `yaml:"zoning"`
	Status      StatusPolicy      `yaml:"station_status"`
	ServiceArea geo.BBox          `yaml:"service_area"`
}

// BandPolicy holds the capacity band thresholds and their map styles.
type BandPolicy struct {
	LowBelowKW    float64                    `yaml:"low_below_kw"`
	MediumBelowKW float64                    `yaml:"medium_below_kw"`
	Styles        map[CapacityBand]BandStyle `yaml:"styles"`
}

// BandStyle is how a capacity band is drawn on the map.
type BandStyle struct {
	Color       string  `yaml:"color" json:"color"`
	FillOpacity float64 `yaml:"fill_opacity" json:"fill_opacity"`
}

// FeasibilityPolicy tunes the traffic-light decision.
type FeasibilityPolicy struct {
	// SafetyMarginKW is subtracted from the raw remaining capacity to get the
	// safe capacity. Zero makes yellow unreachable unless the station data
	// carries its own safe figure.
	SafetyMarginKW float64 `yaml:"safety_margin_kw"`

	// MaxServiceRadiusMeters rejects requests farther than this from every
	// station. Zero or negative disables the check.
	MaxServiceRadiusMeters float64 `yaml:"max_service_radius_m"`

	// UseStationSafeCapacity caps the safe capacity by the station's
	// coincidence-factor figure when present.
	UseStationSafeCapacity bool `yaml:"use_station_safe_capacity"`

	MediumVoltageFromKW float64 `yaml:"medium_voltage_from_kw"`
	HighVoltageFromKW   float64 `yaml:"high_voltage_from_kw"`
}

// ZoningPolicy tunes the tessellation.
type ZoningPolicy struct {
	MaskBufferMeters float64      `yaml:"mask_buffer_m"`
	ClipFallback     ClipFallback `yaml:"clip_fallback"`
}

// StatusPolicy decides the marker colour of a station on the map.
type StatusPolicy struct {
	YellowBelowKW float64 `yaml:"yellow_below_kw"`
}

// ClipFallback selects what happens to a Voronoi cell whose clip against the
// mask fails.
type ClipFallback string

const (
	ClipFallbackDrop          ClipFallback = "drop"
	ClipFallbackKeepUnclipped ClipFallback = "keep_unclipped"
)

// DefaultPolicy returns the thresholds used by the Heilbronn deployment.
func DefaultPolicy() Policy {
	return Policy{
		Bands: BandPolicy{
			LowBelowKW:    50,
			MediumBelowKW: 150,
			Styles: map[CapacityBand]BandStyle{
				BandLow:    {Color: "#ef4444", FillOpacity: 0.45},
				BandMedium: {Color: "#f59e0b", FillOpacity: 0.35},
				BandHigh:   {Color: "#10b981", FillOpacity: 0.25},
			},
		},
		Feasibility: FeasibilityPolicy{
			SafetyMarginKW:         0,
			MaxServiceRadiusMeters: 2000,
			UseStationSafeCapacity: true,
			MediumVoltageFromKW:    135,
			HighVoltageFromKW:      5000,
		},
		Zoning: ZoningPolicy{
			MaskBufferMeters: 1500,
			ClipFallback:     ClipFallbackDrop,
		},
		Status: StatusPolicy{
			YellowBelowKW: 100,
		},
		ServiceArea: geo.BBox{MinLat: 48, MinLon: 8, MaxLat: 50, MaxLon: 10},
	}
}

// Validate rejects inconsistent thresholds. All problems are reported at once.
func (p Policy) Validate() error {
	var errs []error

	if !finite(p.Bands.LowBelowKW) || p.Bands.LowBelowKW <= 0 {
		errs = append(errs, fmt.Errorf("capacity_bands.low_below_kw must be > 0, got %v", p.Bands.LowBelowKW))
	}
	if !finite(p.Bands.MediumBelowKW) || p.Bands.MediumBelowKW <= p.Bands.LowBelowKW {
		errs = append(errs, fmt.Errorf("capacity_bands.medium_below_kw must be > low_below_kw, got %v", p.Bands.MediumBelowKW))
	}
	for _, b := range Bands() {
		style, ok := p.Bands.Styles[b]
		if !ok || style.Color == "" {
			errs = append(errs, fmt.Errorf("capacity_bands.styles.%s.color is required", b))
			continue
		}
		if style.FillOpacity < 0 || style.FillOpacity > 1 {
			errs = append(errs, fmt.Errorf("capacity_bands.styles.%s.fill_opacity must be within [0,1], got %v", b, style.FillOpacity))
		}
	}

	f := p.Feasibility
	if !finite(f.SafetyMarginKW) || f.SafetyMarginKW < 0 {
		errs = append(errs, fmt.Errorf("feasibility.safety_margin_kw must be >= 0, got %v", f.SafetyMarginKW))
	}
	if !finite(f.MaxServiceRadiusMeters) {
		errs = append(errs, fmt.Errorf("feasibility.max_service_radius_m must be finite"))
	}
	if !finite(f.MediumVoltageFromKW) || f.MediumVoltageFromKW <= 0 {
		errs = append(errs, fmt.Errorf("feasibility.medium_voltage_from_kw must be > 0, got %v", f.MediumVoltageFromKW))
	}
	if !finite(f.HighVoltageFromKW) || f.HighVoltageFromKW <= f.MediumVoltageFromKW {
		errs = append(errs, fmt.Errorf("feasibility.high_voltage_from_kw must be > medium_voltage_from_kw, got %v", f.HighVoltageFromKW))
	}

	if !finite(p.Zoning.MaskBufferMeters) || p.Zoning.MaskBufferMeters < 0 {
		errs = append(errs, fmt.Errorf("zoning.mask_buffer_m must be >= 0, got %v", p.Zoning.MaskBufferMeters))
	}
	switch p.Zoning.ClipFallback {
	case ClipFallbackDrop, ClipFallbackKeepUnclipped:
	default:
		errs = append(errs, fmt.Errorf("zoning.clip_fallback must be %q or %q, got %q",
			ClipFallbackDrop, ClipFallbackKeepUnclipped, p.Zoning.ClipFallback))
	}

	if !finite(p.Status.YellowBelowKW) || p.Status.YellowBelowKW < 0 {
		errs = append(errs, fmt.Errorf("station_status.yellow_below_kw must be >= 0, got %v", p.Status.YellowBelowKW))
	}

	a := p.ServiceArea
	if !a.Valid() {
		errs = append(errs, fmt.Errorf("service_area is not a valid box: %+v", a))
	}

	return errors.Join(errs...)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
