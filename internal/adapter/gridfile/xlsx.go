package gridfile

import (
	"fmt"

	"github.com/tealeg/xlsx/v2"

	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
)

type workbook struct {
	stations    []domain.Station
	substations []domain.Substation
	issues      []RowIssue
}

// readWorkbook reads the station sheet and, when withSubstations is set and
// the sheet exists, the substation sheet.
func readWorkbook(path string, withSubstations bool) (workbook, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return workbook{}, fmt.Errorf("xlsx: open %s: %w", path, err)
	}

	rows, err := sheetRows(f, stationsSheetName, true)
	if err != nil {
		return workbook{}, fmt.Errorf("xlsx %s: %w", path, err)
	}
	var wb workbook
	wb.stations, wb.issues, err = parseStationRows(stationsSheetName, rows)
	if err != nil {
		return workbook{}, err
	}

	if !withSubstations {
		return wb, nil
	}
	if _, ok := f.Sheet[substationsSheetName]; !ok {
		return wb, nil
	}
	rows, err = sheetRows(f, substationsSheetName, false)
	if err != nil {
		return workbook{}, fmt.Errorf("xlsx %s: %w", path, err)
	}
	subs, issues, err := parseSubstationRows(substationsSheetName, rows)
	if err != nil {
		return workbook{}, err
	}
	wb.substations = subs
	wb.issues = append(wb.issues, issues...)
	return wb, nil
}

func readSubstationSheet(path string) ([]domain.Substation, []RowIssue, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("xlsx: open %s: %w", path, err)
	}
	rows, err := sheetRows(f, substationsSheetName, true)
	if err != nil {
		return nil, nil, fmt.Errorf("xlsx %s: %w", path, err)
	}
	return parseSubstationRows(substationsSheetName, rows)
}

// sheetRows returns the named sheet as strings. With fallbackFirst a
// single-sheet workbook is accepted whatever its sheet is called.
func sheetRows(f *xlsx.File, name string, fallbackFirst bool) ([][]string, error) {
	sheet, ok := f.Sheet[name]
	if !ok {
		if !fallbackFirst || len(f.Sheets) != 1 {
			return nil, fmt.Errorf("sheet %q not found", name)
		}
		sheet = f.Sheets[0]
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			if cell != nil {
				cells[j] = cell.String()
			}
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
