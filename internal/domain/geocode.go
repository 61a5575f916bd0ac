package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// AddressRequest is a feasibility request by street address.
type AddressRequest struct {
	Address     string  `json:"address"`
	KWRequested float64 `json:"kw_requested"`
	Type        string  `json:"type"`
}

// ResolveAddress geocodes req.Address and turns the request into a
// coordinate-based FeasibilityRequest. The returned GeocodingResult is
// what the provider matched, for display next to the verdict.
func ResolveAddress(ctx context.Context, geocoder Geocoder, req AddressRequest, logger *slog.Logger) (FeasibilityRequest, GeocodingResult, error) {
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return FeasibilityRequest{}, GeocodingResult{}, invalid("address", "address is empty")
	}
	ct, err := ParseConnectionType(req.Type)
	if err != nil {
		return FeasibilityRequest{}, GeocodingResult{}, err
	}
	if geocoder == nil {
		return FeasibilityRequest{}, GeocodingResult{}, fmt.Errorf("no geocoder configured: %w", ErrGeocoderUnavailable)
	}

	result, err := geocoder.Geocode(ctx, address)
	if err != nil {
		logger.Warn("geocoding failed",
			"address", address,
			"error", err,
		)
		return FeasibilityRequest{}, GeocodingResult{}, fmt.Errorf("geocode %q: %v: %w", address, err, ErrGeocoderUnavailable)
	}
	if !result.Found() {
		logger.Info("address not found", "address", address)
		return FeasibilityRequest{}, GeocodingResult{}, fmt.Errorf("geocode %q: %w", address, ErrAddressNotFound)
	}

	logger.Debug("address resolved",
		"address", address,
		"lat", result.Location.Lat,
		"lon", result.Location.Lon,
		"provider", result.Provider,
	)
	return FeasibilityRequest{
		Location:         result.Location,
		RequestedPowerKW: req.KWRequested,
		ConnectionType:   ct,
	}, result, nil
}
