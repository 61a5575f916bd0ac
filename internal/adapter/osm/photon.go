package osm

import (
	"context"
	"net/url"
	"strings"

	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
	"github.com/couchcryptid/grid-feasibility-service/internal/geo"
)

// DefaultPhotonURL is the public Photon instance run by Komoot.
const DefaultPhotonURL = "https://photon.komoot.io"

// Photon implements domain.Geocoder with the Photon API.
type Photon struct {
	client
}

// NewPhoton creates a Photon client.
func NewPhoton(baseURL string, opts ...Option) *Photon {
	return &Photon{client: newClient("photon", baseURL, opts)}
}

// Geocode resolves an address. No match yields a zero result and nil error.
func (p *Photon) Geocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	params := url.Values{
		"q":     {p.query(address)},
		"limit": {"1"},
		"lang":  {"de"},
	}
	var resp photonResponse
	if err := p.getJSON(ctx, "/api", params, &resp); err != nil {
		return domain.GeocodingResult{}, err
	}
	if len(resp.Features) == 0 || len(resp.Features[0].Geometry.Coordinates) != 2 {
		p.record(false)
		return domain.GeocodingResult{}, nil
	}

	f := resp.Features[0]
	p.record(true)
	return domain.GeocodingResult{
		// GeoJSON order: [lon, lat].
		Location:    geo.LatLon{Lat: f.Geometry.Coordinates[1], Lon: f.Geometry.Coordinates[0]},
		DisplayName: f.Properties.displayName(),
		Provider:    p.provider,
	}, nil
}

type photonResponse struct {
	Features []photonFeature `json:"features"`
}

type photonFeature struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties photonProperties `json:"properties"`
}

type photonProperties struct {
	Name        string `json:"name"`
	Street      string `json:"street"`
	HouseNumber string `json:"housenumber"`
	Postcode    string `json:"postcode"`
	City        string `json:"city"`
}

func (pp photonProperties) displayName() string {
	street := strings.TrimSpace(pp.Street + " " + pp.HouseNumber)
	if street == "" {
		street = pp.Name
	}
	var parts []string
	for _, s := range []string{street, strings.TrimSpace(pp.Postcode + " " + pp.City)} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
