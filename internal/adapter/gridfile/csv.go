package gridfile

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
)

func readStationsCSV(path string) ([]domain.Station, []RowIssue, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, nil, err
	}
	return parseStationRows(filepath.Base(path), rows)
}

func readSubstationsCSV(path string) ([]domain.Substation, []RowIssue, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, nil, err
	}
	return parseSubstationRows(filepath.Base(path), rows)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := parseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// parseCSV reads comma- or semicolon-separated data. Excel in a German locale
// exports with semicolons; the delimiter is sniffed from the header line.
func parseCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}
	headerLine, _, _ := strings.Cut(string(first), "\n")

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if strings.Count(headerLine, ";") > 0 {
		cr.Comma = ';'
	}
	return cr.ReadAll()
}
