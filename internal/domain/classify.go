package domain

import "fmt"

// CapacityBand is a coarse grade of remaining capacity.
type CapacityBand string

const (
	BandLow    CapacityBand = "low"
	BandMedium CapacityBand = "medium"
	BandHigh   CapacityBand = "high"
)

// Bands lists the bands from least to most headroom.
func Bands() []CapacityBand {
	return []CapacityBand{BandLow, BandMedium, BandHigh}
}

// Rank orders bands by headroom: low < medium < high. Unknown bands rank -1.
func (b CapacityBand) Rank() int {
	switch b {
	case BandLow:
		return 0
	case BandMedium:
		return 1
	case BandHigh:
		return 2
	default:
		return -1
	}
}

// Classifier maps remaining capacity to a band. The zero value is not
// usable; build one with NewClassifier.
type Classifier struct {
	policy BandPolicy
}

// NewClassifier returns a classifier for the given thresholds.
func NewClassifier(p BandPolicy) Classifier {
	return Classifier{policy: p}
}

// Classify returns the band for a capacity in kW. Thresholds are exclusive
// upper bounds: exactly 50 kW is medium, exactly 150 kW is high.
func (c Classifier) Classify(capacityKW float64) (CapacityBand, error) {
	if !validCapacity(capacityKW) {
		return "", fmt.Errorf("classify %v kW: %w", capacityKW, ErrInvalidCapacity)
	}
	switch {
	case capacityKW < c.policy.LowBelowKW:
		return BandLow, nil
	case capacityKW < c.policy.MediumBelowKW:
		return BandMedium, nil
	default:
		return BandHigh, nil
	}
}

// Style returns the configured map style for a band.
func (c Classifier) Style(b CapacityBand) BandStyle {
	return c.policy.Styles[b]
}

// StationStatus is the marker colour of a station. It shares the traffic
// light vocabulary but has its own thresholds.
func (p StatusPolicy) StationStatus(remainingKW float64) TrafficLight {
	switch {
	case remainingKW <= 0:
		return TrafficLightRed
	case remainingKW < p.YellowBelowKW:
		return TrafficLightYellow
	default:
		return TrafficLightGreen
	}
}
