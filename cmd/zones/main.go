// Command zones renders the capacity zone map of a station file as GeoJSON,
// for static hosting or for inspecting a data export before deploying it.
//
// Usage:
//
//	go run ./cmd/zones \
//	  -stations data/stations.xlsx \
//	  -policy config/policy.yaml \
//	  -out web/public/zones.geojson
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/couchcryptid/grid-feasibility-service/internal/adapter/geojson"
	"github.com/couchcryptid/grid-feasibility-service/internal/adapter/gridfile"
	"github.com/couchcryptid/grid-feasibility-service/internal/config"
	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	stations := flag.String("stations", "", "station file (.csv, .xlsx or .json)")
	substations := flag.String("substations", "", "optional substation file")
	policyPath := flag.String("policy", "", "optional policy YAML")
	out := flag.String("out", "", "output path (default stdout)")
	mask := flag.Bool("mask", false, "include the service mask as a feature")
	flag.Parse()

	if *stations == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -stations")
	}

	policy, err := config.LoadPolicy(*policyPath)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}
	partitioner, err := domain.NewPartitioner(policy)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	all, _, err := gridfile.NewLoader(*stations, *substations, logger).Load(context.Background())
	if err != nil {
		return fmt.Errorf("load stations: %w", err)
	}

	set, err := partitioner.Partition(all)
	if err != nil {
		return fmt.Errorf("partition %d stations: %w", len(all), err)
	}
	data, err := geojson.NewEncoder(partitioner.Classifier(), geojson.Options{IncludeMask: *mask}).Marshal(set)
	if err != nil {
		return fmt.Errorf("encode zones: %w", err)
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write zones: %w", err)
	}

	log.Printf("%d stations: %d zones, %d dropped, %d clip fallbacks",
		set.Stations, len(set.Zones), set.Dropped, set.Fallbacks)
	return nil
}
