package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("request: %w", invalid("kw_requested", "must be positive"))

	assert.ErrorIs(t, err, ErrValidation)
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "kw_requested", ve.Field)
	assert.Equal(t, "invalid kw_requested: must be positive", ve.Error())
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{invalid("type", "bad"), "validation"},
		{fmt.Errorf("station x: %w", ErrInvalidCapacity), "invalid_capacity"},
		{fmt.Errorf("far: %w", ErrNoStationFound), "no_station_found"},
		{ErrNoStationsAvailable, "no_stations_available"},
		{ErrInsufficientStations, "insufficient_stations"},
		{ErrAddressNotFound, "address_not_found"},
		{ErrGeocoderUnavailable, "geocoder_unavailable"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), tt.err.Error())
	}
}
