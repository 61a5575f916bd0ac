package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/couchcryptid/grid-feasibility-service/internal/adapter/geojson"
	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
	"github.com/couchcryptid/grid-feasibility-service/internal/observability"
)

const maxBodyBytes = 64 << 10

type api struct {
	catalog    Catalog
	engine     *domain.Engine
	classifier domain.Classifier
	status     domain.StatusPolicy
	geocoder   domain.Geocoder
	metrics    *observability.Metrics
	logger     *slog.Logger
}

func newAPI(svc Services, logger *slog.Logger) *api {
	p := svc.Engine.Policy()
	return &api{
		catalog:    svc.Catalog,
		engine:     svc.Engine,
		classifier: domain.NewClassifier(p.Bands),
		status:     p.Status,
		geocoder:   svc.Geocoder,
		metrics:    svc.Metrics,
		logger:     logger,
	}
}

// stationView is a station as shown on the map.
type stationView struct {
	domain.StationRecord
	Status       domain.TrafficLight `json:"status"`
	CapacityBand domain.CapacityBand `json:"capacity_band"`
}

// addressVerdict is a verdict with the geocoded location it was made for.
type addressVerdict struct {
	domain.Verdict
	Address     string  `json:"address"`
	ResolvedLat float64 `json:"resolved_lat"`
	ResolvedLon float64 `json:"resolved_lon"`
	DisplayName string  `json:"display_name,omitempty"`
	Provider    string  `json:"provider,omitempty"`
}

func (a *api) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Electrify Heilbronn API is running"})
}

func (a *api) handleStations(w http.ResponseWriter, _ *http.Request) {
	snap := a.catalog.Snapshot()
	if snap == nil {
		a.fail(w, "stations", domain.ErrNoStationsAvailable)
		return
	}

	views := make([]stationView, 0, len(snap.Stations))
	for _, s := range snap.Stations {
		band, err := a.classifier.Classify(s.RemainingCapacity)
		if err != nil {
			a.fail(w, "stations", fmt.Errorf("station %s: %w", s.ID, err))
			return
		}
		// The marker shows the headroom that is safe to hand out.
		headroom := s.RemainingCapacity
		if s.RemainingSafeCapacity != nil {
			headroom = *s.RemainingSafeCapacity
		}
		views = append(views, stationView{
			StationRecord: s.Record(),
			Status:        a.status.StationStatus(headroom),
			CapacityBand:  band,
		})
	}
	w.Header().Set("ETag", strconv.Quote(snap.Version))
	writeJSON(w, http.StatusOK, views)
}

func (a *api) handleZones(w http.ResponseWriter, r *http.Request) {
	res, err := a.catalog.Zones(r.Context())
	if err != nil {
		a.fail(w, "zones", err)
		return
	}

	etag := strconv.Quote(res.Version)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	includeMask, _ := strconv.ParseBool(r.URL.Query().Get("mask"))
	body, err := geojson.NewEncoder(a.classifier, geojson.Options{IncludeMask: includeMask}).Marshal(res.ZoneSet)
	if err != nil {
		a.fail(w, "zones", err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("ETag", etag)
	w.Header().Set("Last-Modified", res.BuiltAt.Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	w.Write(body) //nolint:errcheck // client may have gone away
}

func (a *api) handleCheckFeasibility(w http.ResponseWriter, r *http.Request) {
	const source = "http"

	var rec domain.RequestRecord
	if err := decodeBody(w, r, &rec); err != nil {
		a.fail(w, source, err)
		return
	}
	req, err := rec.ToRequest()
	if err != nil {
		a.fail(w, source, err)
		return
	}
	v, err := a.evaluate(source, req)
	if err != nil {
		a.fail(w, source, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *api) handleCheckAddress(w http.ResponseWriter, r *http.Request) {
	const source = "address"

	var body domain.AddressRequest
	if err := decodeBody(w, r, &body); err != nil {
		a.fail(w, source, err)
		return
	}
	req, match, err := domain.ResolveAddress(r.Context(), a.geocoder, body, a.logger)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		a.fail(w, source, err)
		return
	}
	v, err := a.evaluate(source, req)
	if err != nil {
		a.fail(w, source, err)
		return
	}
	writeJSON(w, http.StatusOK, addressVerdict{
		Verdict:     v,
		Address:     body.Address,
		ResolvedLat: match.Location.Lat,
		ResolvedLon: match.Location.Lon,
		DisplayName: match.DisplayName,
		Provider:    match.Provider,
	})
}

func (a *api) evaluate(source string, req domain.FeasibilityRequest) (domain.Verdict, error) {
	v, err := a.engine.Evaluate(req, a.catalog.Snapshot())
	if err != nil {
		return domain.Verdict{}, err
	}
	a.metrics.FeasibilityChecks.WithLabelValues(source, string(v.TrafficLight)).Inc()
	a.logger.Debug("feasibility checked",
		"source", source,
		"station", v.GoverningStationID,
		"kw_requested", v.KWRequested,
		"traffic_light", v.TrafficLight,
	)
	return v, nil
}

// fail writes the error response and counts it.
func (a *api) fail(w http.ResponseWriter, source string, err error) {
	status, code := classify(err)
	a.metrics.EvaluationErrors.WithLabelValues(source, domain.ErrorKind(err)).Inc()

	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", "source", source, "error", err)
		msg = "internal error"
	}
	writeError(w, status, code, msg)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &domain.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}
