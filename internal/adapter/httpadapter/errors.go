package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
)

// Error codes the web frontend switches on.
const (
	codeValidation          = "VALIDATION_ERROR"
	codeNoStationFound      = "NO_STATION_FOUND"
	codeNoStationsAvailable = "NO_STATIONS_AVAILABLE"
	codeAddressNotFound     = "ADDRESS_NOT_FOUND"
	codeGeocoderUnavailable = "GEOCODER_UNAVAILABLE"
	codeInternal            = "INTERNAL_ERROR"
)

type errorBody struct {
	Detail errorDetail `json:"detail"`
}

type errorDetail struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// classify maps a domain error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidCapacity):
		return http.StatusUnprocessableEntity, codeValidation
	case errors.Is(err, domain.ErrNoStationFound):
		return http.StatusNotFound, codeNoStationFound
	case errors.Is(err, domain.ErrNoStationsAvailable), errors.Is(err, domain.ErrInsufficientStations):
		return http.StatusServiceUnavailable, codeNoStationsAvailable
	case errors.Is(err, domain.ErrAddressNotFound):
		return http.StatusNotFound, codeAddressNotFound
	case errors.Is(err, domain.ErrGeocoderUnavailable):
		return http.StatusServiceUnavailable, codeGeocoderUnavailable
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Detail: errorDetail{Error: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
