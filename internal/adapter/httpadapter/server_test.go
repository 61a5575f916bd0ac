package httpadapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/grid-feasibility-service/internal/adapter/httpadapter"
	"github.com/couchcryptid/grid-feasibility-service/internal/catalog"
	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
	"github.com/couchcryptid/grid-feasibility-service/internal/geo"
	"github.com/couchcryptid/grid-feasibility-service/internal/observability"
)

type stubSource struct {
	stations []domain.Station
}

func (s *stubSource) Load(_ context.Context) ([]domain.Station, []domain.Substation, error) {
	return s.stations, nil, nil
}

type stubGeocoder struct {
	result domain.GeocodingResult
	err    error
}

func (g *stubGeocoder) Geocode(_ context.Context, _ string) (domain.GeocodingResult, error) {
	return g.result, g.err
}

func testStations() []domain.Station {
	return []domain.Station{
		{ID: "A", Location: geo.LatLon{Lat: 49.1400, Lon: 9.2200}, RemainingCapacity: 100},
		{ID: "B", Location: geo.LatLon{Lat: 49.1450, Lon: 9.2300}, RemainingCapacity: 30},
		{ID: "C", Location: geo.LatLon{Lat: 49.1350, Lon: 9.2350}, RemainingCapacity: 200},
	}
}

type fixture struct {
	srv     *httpadapter.Server
	metrics *observability.Metrics
}

func newFixture(t *testing.T, loaded bool, geocoder domain.Geocoder) fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	policy := domain.DefaultPolicy()

	engine, err := domain.NewEngine(policy)
	require.NoError(t, err)
	partitioner, err := domain.NewPartitioner(policy)
	require.NoError(t, err)

	cat := catalog.New(&stubSource{stations: testStations()}, partitioner, logger, metrics)
	if loaded {
		_, err := cat.Load(context.Background())
		require.NoError(t, err)
	}

	srv := httpadapter.NewServer(":0", httpadapter.Services{
		Catalog:  cat,
		Engine:   engine,
		Geocoder: geocoder,
		Metrics:  metrics,
	}, logger)
	return fixture{srv: srv, metrics: metrics}
}

func (f fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

type errorResponse struct {
	Detail struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	} `json:"detail"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRootBanner(t *testing.T) {
	rec := newFixture(t, true, nil).do(http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Electrify Heilbronn API is running"}`, rec.Body.String())
}

func TestUnknownPathIs404(t *testing.T) {
	rec := newFixture(t, true, nil).do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthzReturns200(t *testing.T) {
	rec := newFixture(t, false, nil).do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzFollowsCatalog(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, newFixture(t, false, nil).do(http.MethodGet, "/readyz", "").Code)
	assert.Equal(t, http.StatusOK, newFixture(t, true, nil).do(http.MethodGet, "/readyz", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := newFixture(t, true, nil).do(http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStations(t *testing.T) {
	rec := newFixture(t, true, nil).do(http.MethodGet, "/stations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("ETag"))

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 3)

	byID := map[string]map[string]any{}
	for _, s := range body {
		byID[s["id"].(string)] = s
	}
	assert.Equal(t, "green", byID["A"]["status"])
	assert.Equal(t, "medium", byID["A"]["capacity_band"])
	assert.Equal(t, "yellow", byID["B"]["status"])
	assert.Equal(t, "low", byID["B"]["capacity_band"])
	assert.Equal(t, "high", byID["C"]["capacity_band"])
	assert.InDelta(t, 49.14, byID["A"]["lat"], 1e-9)
}

func TestStations_NotLoaded(t *testing.T) {
	rec := newFixture(t, false, nil).do(http.MethodGet, "/stations", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NO_STATIONS_AVAILABLE", decodeError(t, rec).Detail.Error)
}

func TestZones(t *testing.T) {
	f := newFixture(t, true, nil)
	rec := f.do(http.MethodGet, "/zones", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	builtAt, err := http.ParseTime(rec.Header().Get("Last-Modified"))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), builtAt, time.Minute)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 3)
	for _, feat := range fc.Features {
		assert.Contains(t, feat.Properties, "owning_station_id")
		assert.Contains(t, feat.Properties, "remaining_capacity")
	}

	// Conditional request against the same snapshot.
	req := httptest.NewRequest(http.MethodGet, "/zones", nil)
	req.Header.Set("If-None-Match", rec.Header().Get("ETag"))
	rec2 := httptest.NewRecorder()
	f.srv.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusNotModified, rec2.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ZoneBuilds.WithLabelValues("success")))
}

func TestZones_WithMask(t *testing.T) {
	rec := newFixture(t, true, nil).do(http.MethodGet, "/zones?mask=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"mask"`)
}

func TestCheckFeasibility_Green(t *testing.T) {
	f := newFixture(t, true, nil)
	rec := f.do(http.MethodPost, "/check-feasibility", `{"lat":49.1405,"lon":9.2205,"kw_requested":10,"type":"load"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var v domain.Verdict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, "A", v.GoverningStationID)
	assert.Equal(t, domain.TrafficLightGreen, v.TrafficLight)
	assert.Equal(t, 100.0, v.RemainingRawKW)
	assert.Equal(t, domain.GridLevelLow.Label, v.GridLevel)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.FeasibilityChecks.WithLabelValues("http", "green")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.HTTPRequests.WithLabelValues("POST /check-feasibility", "200")))
}

func TestCheckFeasibility_Red(t *testing.T) {
	rec := newFixture(t, true, nil).do(http.MethodPost, "/check-feasibility", `{"lat":49.1405,"lon":9.2205,"kw_requested":150,"type":"feed_in"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var v domain.Verdict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, domain.TrafficLightRed, v.TrafficLight)
	assert.Equal(t, domain.GridLevelMedium.Label, v.GridLevel)
}

func TestCheckFeasibility_Errors(t *testing.T) {
	tests := []struct {
		name   string
		loaded bool
		body   string
		status int
		code   string
	}{
		{"malformed json", true, `{"lat":`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"unknown type", true, `{"lat":49.14,"lon":9.22,"kw_requested":10,"type":"storage"}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"zero power", true, `{"lat":49.14,"lon":9.22,"kw_requested":0,"type":"load"}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"outside service area", true, `{"lat":52.52,"lon":13.40,"kw_requested":10,"type":"load"}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"too far from any station", true, `{"lat":49.30,"lon":9.50,"kw_requested":10,"type":"load"}`, http.StatusNotFound, "NO_STATION_FOUND"},
		{"no snapshot", false, `{"lat":49.14,"lon":9.22,"kw_requested":10,"type":"load"}`, http.StatusServiceUnavailable, "NO_STATIONS_AVAILABLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newFixture(t, tt.loaded, nil).do(http.MethodPost, "/check-feasibility", tt.body)

			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Detail.Error)
			assert.NotEmpty(t, body.Detail.Message)
		})
	}
}

func TestCheckFeasibility_WrongMethod(t *testing.T) {
	rec := newFixture(t, true, nil).do(http.MethodGet, "/check-feasibility", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCheckAddress(t *testing.T) {
	geocoder := &stubGeocoder{result: domain.GeocodingResult{
		Location:    geo.LatLon{Lat: 49.1405, Lon: 9.2205},
		DisplayName: "Allee 1, 74072 Heilbronn",
		Provider:    "nominatim",
	}}
	f := newFixture(t, true, geocoder)
	rec := f.do(http.MethodPost, "/check-address", `{"address":"Allee 1","kw_requested":10,"type":"load"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "A", body["nearest_station_id"])
	assert.Equal(t, "green", body["traffic_light"])
	assert.Equal(t, "Allee 1", body["address"])
	assert.Equal(t, "nominatim", body["provider"])
	assert.InDelta(t, 49.1405, body["resolved_lat"], 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.FeasibilityChecks.WithLabelValues("address", "green")))
}

func TestCheckAddress_Errors(t *testing.T) {
	tests := []struct {
		name     string
		geocoder domain.Geocoder
		body     string
		status   int
		code     string
	}{
		{"not found", &stubGeocoder{}, `{"address":"Nowhere 0","kw_requested":10,"type":"load"}`, http.StatusNotFound, "ADDRESS_NOT_FOUND"},
		{"provider down", &stubGeocoder{err: errors.New("status 503")}, `{"address":"Allee 1","kw_requested":10,"type":"load"}`, http.StatusServiceUnavailable, "GEOCODER_UNAVAILABLE"},
		{"geocoding disabled", nil, `{"address":"Allee 1","kw_requested":10,"type":"load"}`, http.StatusServiceUnavailable, "GEOCODER_UNAVAILABLE"},
		{"empty address", &stubGeocoder{}, `{"address":"  ","kw_requested":10,"type":"load"}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newFixture(t, true, tt.geocoder).do(http.MethodPost, "/check-address", tt.body)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Detail.Error)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, true, nil)
	req := httptest.NewRequest(http.MethodOptions, "/check-feasibility", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	f.srv.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
