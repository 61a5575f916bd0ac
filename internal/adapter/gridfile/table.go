package gridfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
	"github.com/couchcryptid/grid-feasibility-service/internal/geo"
)

// Column headers of the operator's capacity workbook.
const (
	colStationID     = "ONS"
	colLatitude      = "Breitengrad"
	colLongitude     = "Längengrad"
	colInstalled     = "Installierte Trafoleistung"
	colPV            = "PV-Leistung an ONS"
	colRemaining     = "Übrige Trafokapazität"
	colRemainingSafe = "Übrige Trafokapazität bei Gleichzeitigkeitsfaktor 0,7"
	colSubstation    = "Umspannwerk"
	colSubstationID  = "UW"
	colSubstationMW  = "Verfügbare Einspeisekapazität in MW"
)

// Sheet names in the XLSX workbook.
const (
	stationsSheetName    = "Kapa Stationen"
	substationsSheetName = "Kapa Umspannwerke"
)

// RowIssue records a source row that was skipped or corrected.
type RowIssue struct {
	Table  string
	Row    int // 1-based, header is row 1
	Reason string
}

func (i RowIssue) String() string {
	return fmt.Sprintf("%s row %d: %s", i.Table, i.Row, i.Reason)
}

// header maps normalized column names to their index.
type header map[string]int

func newHeader(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		key := normalizeHeader(name)
		if _, dup := h[key]; !dup {
			h[key] = i
		}
	}
	return h
}

func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func (h header) require(table string, names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := h[normalizeHeader(n)]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing columns %q", table, missing)
	}
	return nil
}

func (h header) get(row []string, name string) string {
	i, ok := h[normalizeHeader(name)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseNumber reads the workbook's number formats: optional kW/MW unit
// suffix, decimal comma, and German thousands separators. ok is false for
// empty and unparseable cells.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, unit := range []string{"kw", "mw"} {
		if strings.HasSuffix(lower, unit) {
			s = strings.TrimSpace(s[:len(s)-len(unit)])
			break
		}
	}
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// normalizeID strips the ".0" spreadsheets append to integer ids.
func normalizeID(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, ".0") {
		if _, err := strconv.Atoi(s[:len(s)-2]); err == nil {
			return s[:len(s)-2]
		}
	}
	return s
}

func optionalNumber(s string) *float64 {
	f, ok := parseNumber(s)
	if !ok {
		return nil
	}
	f = max(f, 0)
	return &f
}

// parseStationRows converts a station table. The first row is the header.
// Rows without coordinates are skipped; swapped coordinates are corrected;
// missing remaining capacity is read as zero and negative capacity is
// clamped to zero (an overloaded transformer has no headroom left).
func parseStationRows(table string, rows [][]string) ([]domain.Station, []RowIssue, error) {
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%s: empty table", table)
	}
	h := newHeader(rows[0])
	if err := h.require(table, colStationID, colLatitude, colLongitude, colRemaining); err != nil {
		return nil, nil, err
	}

	var (
		stations []domain.Station
		issues   []RowIssue
	)
	for i, row := range rows[1:] {
		rowNum := i + 2
		if blank(row) {
			continue
		}
		issue := func(format string, args ...any) {
			issues = append(issues, RowIssue{Table: table, Row: rowNum, Reason: fmt.Sprintf(format, args...)})
		}

		id := normalizeID(h.get(row, colStationID))
		if id == "" {
			issue("missing station id")
			continue
		}
		lat, okLat := parseNumber(h.get(row, colLatitude))
		lon, okLon := parseNumber(h.get(row, colLongitude))
		if !okLat || !okLon {
			issue("station %s: missing coordinates", id)
			continue
		}
		if lat < 15 && lon > 45 {
			lat, lon = lon, lat
			issue("station %s: swapped latitude and longitude", id)
		}

		remaining, ok := parseNumber(h.get(row, colRemaining))
		if !ok {
			issue("station %s: missing remaining capacity, using 0", id)
		}
		if remaining < 0 {
			issue("station %s: negative remaining capacity %v clamped to 0", id, remaining)
			remaining = 0
		}

		s := domain.Station{
			ID:                    id,
			Location:              geo.LatLon{Lat: lat, Lon: lon},
			RemainingCapacity:     remaining,
			MaxCapacity:           optionalNumber(h.get(row, colInstalled)),
			CurrentLoadPV:         optionalNumber(h.get(row, colPV)),
			RemainingSafeCapacity: optionalNumber(h.get(row, colRemainingSafe)),
			SubstationID:          normalizeID(h.get(row, colSubstation)),
		}
		if err := s.Validate(); err != nil {
			issue("%v", err)
			continue
		}
		stations = append(stations, s)
	}
	return stations, issues, nil
}

// parseSubstationRows converts a substation table. Capacity is given in MW
// and stored in kW.
func parseSubstationRows(table string, rows [][]string) ([]domain.Substation, []RowIssue, error) {
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%s: empty table", table)
	}
	h := newHeader(rows[0])
	if err := h.require(table, colSubstationID, colSubstationMW); err != nil {
		return nil, nil, err
	}

	var (
		subs   []domain.Substation
		issues []RowIssue
	)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		id := normalizeID(h.get(row, colSubstationID))
		mw, ok := parseNumber(h.get(row, colSubstationMW))
		switch {
		case id == "":
			issues = append(issues, RowIssue{Table: table, Row: i + 2, Reason: "missing substation id"})
			continue
		case !ok:
			issues = append(issues, RowIssue{Table: table, Row: i + 2, Reason: fmt.Sprintf("substation %s: missing capacity", id)})
			continue
		}
		subs = append(subs, domain.Substation{ID: id, AvailableFeedInKW: max(mw, 0) * 1000})
	}
	return subs, issues, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
