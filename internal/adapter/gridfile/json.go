package gridfile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
)

func readStationsJSON(path string) ([]domain.Station, error) {
	var records []domain.StationRecord
	if err := readJSON(path, &records); err != nil {
		return nil, err
	}
	stations := make([]domain.Station, 0, len(records))
	for i, rec := range records {
		s, err := rec.ToStation()
		if err != nil {
			return nil, fmt.Errorf("%s: station %d: %w", path, i, err)
		}
		stations = append(stations, s)
	}
	return stations, nil
}

func readSubstationsJSON(path string) ([]domain.Substation, error) {
	var subs []domain.Substation
	if err := readJSON(path, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
