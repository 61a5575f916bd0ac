// Command validate checks a station data export before it is deployed: row
// parsing, station invariants, id uniqueness, substation references, the
// service area, and whether the stations can be tessellated.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -stations data/stations.xlsx \
//	  -substations data/substations.csv \
//	  -policy config/policy.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/grid-feasibility-service/internal/adapter/gridfile"
	"github.com/couchcryptid/grid-feasibility-service/internal/config"
	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
	"github.com/couchcryptid/grid-feasibility-service/internal/geo"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	stations := flag.String("stations", "", "station file (.csv, .xlsx or .json)")
	substations := flag.String("substations", "", "optional substation file")
	policyPath := flag.String("policy", "", "optional policy YAML")
	flag.Parse()

	if *stations == "" {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(*stations, *substations, *policyPath))
}

func run(stationsPath, substationsPath, policyPath string) int {
	fmt.Println("=== Station Data Validation ===")
	fmt.Println()

	policy, err := config.LoadPolicy(policyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load policy: %v\n", err)
		return 1
	}
	partitioner, err := domain.NewPartitioner(policy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	res, err := gridfile.NewLoader(stationsPath, substationsPath, logger).Read(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read station data: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateRows(res.Issues),
		validateStations(res.Stations),
		validateSubstationRefs(res.Stations, res.Substations),
		validateServiceArea(res.Stations, policy.ServiceArea),
		validateTessellation(res.Stations, partitioner),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d stations, %d substations, %d row issues\n",
		len(res.Stations), len(res.Substations), len(res.Issues))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validateRows(issues []gridfile.RowIssue) *phase {
	p := &phase{name: "Rows parse cleanly"}
	for _, issue := range issues {
		p.errorf("%s", issue)
	}
	return p
}

func validateStations(stations []domain.Station) *phase {
	p := &phase{name: "Station invariants and unique ids"}
	if len(stations) == 0 {
		p.errorf("no stations")
	}
	seen := make(map[string]int, len(stations))
	for i, s := range stations {
		if err := s.Validate(); err != nil {
			p.errorf("station #%d: %v", i+1, err)
		}
		if first, dup := seen[s.ID]; dup {
			p.errorf("station id %q appears at #%d and #%d", s.ID, first+1, i+1)
			continue
		}
		seen[s.ID] = i
	}
	if distinct := len(domain.DedupeByLocation(stations)); distinct < len(stations) {
		p.errorf("%d stations share a location with an earlier station", len(stations)-distinct)
	}
	return p
}

func validateSubstationRefs(stations []domain.Station, subs []domain.Substation) *phase {
	p := &phase{name: "Substation references resolve"}
	if len(subs) == 0 {
		return p
	}
	known := make(map[string]bool, len(subs))
	for _, sub := range subs {
		known[sub.ID] = true
	}
	for _, s := range stations {
		if s.SubstationID != "" && !known[s.SubstationID] {
			p.errorf("station %s references unknown substation %q", s.ID, s.SubstationID)
		}
	}
	return p
}

func validateServiceArea(stations []domain.Station, area geo.BBox) *phase {
	p := &phase{name: "Stations inside service area"}
	for _, s := range stations {
		if !area.Contains(s.Location) {
			p.errorf("station %s at %.5f,%.5f is outside the service area", s.ID, s.Location.Lat, s.Location.Lon)
		}
	}
	return p
}

func validateTessellation(stations []domain.Station, partitioner *domain.Partitioner) *phase {
	p := &phase{name: "Stations tessellate"}
	set, err := partitioner.Partition(stations)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	if set.Dropped > 0 {
		p.errorf("%d of %d zones dropped (outside the mask or clip failed)", set.Dropped, set.Stations)
	}
	if set.Fallbacks > 0 {
		p.errorf("%d clip fallbacks", set.Fallbacks)
	}
	return p
}
