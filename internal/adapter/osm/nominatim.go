package osm

import (
	"context"
	"net/url"
	"strconv"

	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
	"github.com/couchcryptid/grid-feasibility-service/internal/geo"
)

// DefaultNominatimURL is the public OpenStreetMap Nominatim instance.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim implements domain.Geocoder with the Nominatim search API.
type Nominatim struct {
	client
}

// NewNominatim creates a Nominatim client.
func NewNominatim(baseURL string, opts ...Option) *Nominatim {
	return &Nominatim{client: newClient("nominatim", baseURL, opts)}
}

// Geocode resolves an address. No match yields a zero result and nil error.
func (n *Nominatim) Geocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	params := url.Values{
		"q":      {n.query(address)},
		"format": {"json"},
		"limit":  {"1"},
	}
	var places []nominatimPlace
	if err := n.getJSON(ctx, "/search", params, &places); err != nil {
		return domain.GeocodingResult{}, err
	}
	if len(places) == 0 {
		n.record(false)
		return domain.GeocodingResult{}, nil
	}

	p := places[0]
	lat, errLat := strconv.ParseFloat(p.Lat, 64)
	lon, errLon := strconv.ParseFloat(p.Lon, 64)
	if errLat != nil || errLon != nil {
		n.record(false)
		n.logger.Warn("nominatim returned unparseable coordinates", "lat", p.Lat, "lon", p.Lon)
		return domain.GeocodingResult{}, nil
	}
	n.record(true)
	return domain.GeocodingResult{
		Location:    geo.LatLon{Lat: lat, Lon: lon},
		DisplayName: p.DisplayName,
		Provider:    n.provider,
	}, nil
}

// Nominatim returns coordinates as strings.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}
