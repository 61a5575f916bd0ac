// Package gridfile reads station and substation data from the operator's
// capacity exports (CSV, XLSX workbook, or JSON).
package gridfile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
)

// Result is the outcome of reading the station files.
type Result struct {
	Stations    []domain.Station
	Substations []domain.Substation
	Issues      []RowIssue
}

// Loader reads station data from files, choosing the format by extension.
type Loader struct {
	stationsPath    string
	substationsPath string
	logger          *slog.Logger
}

// NewLoader creates a loader. substationsPath may be empty; an XLSX stations
// workbook then also supplies the substation sheet when it has one.
func NewLoader(stationsPath, substationsPath string, logger *slog.Logger) *Loader {
	return &Loader{
		stationsPath:    stationsPath,
		substationsPath: substationsPath,
		logger:          logger,
	}
}

// Load reads the files and logs row issues. It satisfies catalog.Source.
func (l *Loader) Load(ctx context.Context) ([]domain.Station, []domain.Substation, error) {
	res, err := l.Read(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, issue := range res.Issues {
		l.logger.Warn("station data row issue",
			"table", issue.Table,
			"row", issue.Row,
			"reason", issue.Reason,
		)
	}
	l.logger.Info("station data read",
		"path", l.stationsPath,
		"stations", len(res.Stations),
		"substations", len(res.Substations),
		"issues", len(res.Issues),
	)
	return res.Stations, res.Substations, nil
}

// Read parses the files without logging.
func (l *Loader) Read(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var res Result
	var err error
	switch ext := extension(l.stationsPath); ext {
	case ".csv":
		res.Stations, res.Issues, err = readStationsCSV(l.stationsPath)
	case ".xlsx":
		var wb workbook
		wb, err = readWorkbook(l.stationsPath, l.substationsPath == "")
		res.Stations, res.Substations, res.Issues = wb.stations, wb.substations, wb.issues
	case ".json":
		res.Stations, err = readStationsJSON(l.stationsPath)
	default:
		return Result{}, fmt.Errorf("stations file %s: unsupported format %q", l.stationsPath, ext)
	}
	if err != nil {
		return Result{}, err
	}

	if l.substationsPath == "" {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var issues []RowIssue
	switch ext := extension(l.substationsPath); ext {
	case ".csv":
		res.Substations, issues, err = readSubstationsCSV(l.substationsPath)
	case ".xlsx":
		res.Substations, issues, err = readSubstationSheet(l.substationsPath)
	case ".json":
		res.Substations, err = readSubstationsJSON(l.substationsPath)
	default:
		return Result{}, fmt.Errorf("substations file %s: unsupported format %q", l.substationsPath, ext)
	}
	if err != nil {
		return Result{}, err
	}
	res.Issues = append(res.Issues, issues...)
	return res, nil
}

func extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
