package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation error")

	// ErrNoStationsAvailable means the station set is empty.
	ErrNoStationsAvailable = errors.New("no stations available")

	// ErrInsufficientStations means fewer than three distinct station
	// locations were supplied to the partitioner.
	ErrInsufficientStations = errors.New("insufficient stations for tessellation")

	// ErrNoStationFound means no station lies within the service radius.
	ErrNoStationFound = errors.New("no station found within service radius")

	// ErrInvalidCapacity means a capacity value is negative or not a number.
	ErrInvalidCapacity = errors.New("invalid capacity")

	// ErrAddressNotFound means the geocoder returned no match.
	ErrAddressNotFound = errors.New("address not found")

	// ErrGeocoderUnavailable means the geocoder failed, as opposed to
	// finding nothing.
	ErrGeocoderUnavailable = errors.New("geocoder unavailable")
)

// ValidationError describes a rejected request or record field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ErrorKind is a short label for err, used in metrics and logs.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrInvalidCapacity):
		return "invalid_capacity"
	case errors.Is(err, ErrNoStationFound):
		return "no_station_found"
	case errors.Is(err, ErrNoStationsAvailable):
		return "no_stations_available"
	case errors.Is(err, ErrInsufficientStations):
		return "insufficient_stations"
	case errors.Is(err, ErrAddressNotFound):
		return "address_not_found"
	case errors.Is(err, ErrGeocoderUnavailable):
		return "geocoder_unavailable"
	default:
		return "internal"
	}
}
