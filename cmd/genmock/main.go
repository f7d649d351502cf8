// Command genmock regenerates the mock feed snapshot fixture used by the
// test suite. It renders a deterministic OpenDataSoft-shaped payload from
// seed station data and, optionally, the transformed rows produced from it by
// the real domain package, so fixtures can never drift from pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -snapshot-out internal/domain/testdata/velib_snapshot.json \
//	  -transformed-out /tmp/velib_transformed.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/velib-etl-service/internal/domain"
)

// baseTime anchors all fixture timestamps.
var baseTime = time.Date(2024, time.January, 15, 10, 35, 0, 0, time.UTC)

type seedStation struct {
	code        string
	recordID    string
	name        string
	lat, lon    float64
	capacity    int
	arr         string
	insee       string
	bikes       int
	mechanical  int
	ebike       int
	docks       int
	returning   string
	reportedAgo time.Duration
}

var seeds = []seedStation{
	{
		code: "16107", recordID: "9f4a7e0c2b1d8e5f6a3c0b9d8e7f6a5b4c3d2e1f",
		name: "Benjamin Godard - Victor Hugo",
		lat:  48.865983, lon: 2.275725,
		capacity: 35, arr: "Paris 16ème", insee: "75116",
		bikes: 12, mechanical: 8, ebike: 4, docks: 23,
		returning: "OUI", reportedAgo: 5 * time.Minute,
	},
	{
		code: "10042", recordID: "1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b",
		name: "Charonne - Robert et Sonia Delaunay",
		lat:  48.855, lon: 2.397,
		capacity: 20, arr: "Paris 10ème", insee: "75110",
		bikes: 5, mechanical: 3, ebike: 2, docks: 15,
		returning: "NON", reportedAgo: 10 * time.Minute,
	},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	snapshotOut := flag.String("snapshot-out", "", "output path for the raw snapshot fixture")
	transformedOut := flag.String("transformed-out", "", "optional output path for the transformed rows fixture")
	flag.Parse()

	if *snapshotOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -snapshot-out")
	}

	payload, err := renderPayload()
	if err != nil {
		return err
	}

	if err := os.WriteFile(*snapshotOut, payload, 0o644); err != nil {
		return fmt.Errorf("write snapshot fixture: %w", err)
	}
	fmt.Printf("wrote %s (%d stations)\n", *snapshotOut, len(seeds))

	if *transformedOut == "" {
		return nil
	}

	// Freeze the clock so event-time fallbacks in the fixture are stable.
	domain.SetClock(clockwork.NewFakeClockAt(baseTime))
	defer domain.SetClock(nil)

	result, err := domain.TransformSnapshot(domain.RawSnapshot{
		Payload:     payload,
		IngestedAt:  baseTime,
		Source:      domain.SourceTag,
		RecordCount: len(seeds),
	})
	if err != nil {
		return fmt.Errorf("transform fixture: %w", err)
	}

	transformed, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transformed fixture: %w", err)
	}
	if err := os.WriteFile(*transformedOut, append(transformed, '\n'), 0o644); err != nil {
		return fmt.Errorf("write transformed fixture: %w", err)
	}
	fmt.Printf("wrote %s (%d stations, %d availability rows)\n",
		*transformedOut, len(result.Stations), len(result.Availability))
	return nil
}

func renderPayload() ([]byte, error) {
	records := make([]map[string]any, 0, len(seeds))
	for _, s := range seeds {
		duedate := baseTime.Add(-s.reportedAgo).Format("2006-01-02T15:04:05") + "+00:00"
		records = append(records, map[string]any{
			"recordid": s.recordID,
			"fields": map[string]any{
				"stationcode":                 s.code,
				"name":                        s.name,
				"coordonnees_geo":             []float64{s.lat, s.lon},
				"capacity":                    s.capacity,
				"nom_arrondissement_communes": s.arr,
				"code_insee_commune":          s.insee,
				"numbikesavailable":           s.bikes,
				"mechanical":                  s.mechanical,
				"ebike":                       s.ebike,
				"numdocksavailable":           s.docks,
				"is_installed":                "OUI",
				"is_renting":                  "OUI",
				"is_returning":                s.returning,
				"duedate":                     duedate,
			},
		})
	}

	doc := map[string]any{
		"nhits": len(records),
		"parameters": map[string]any{
			"dataset": "velib-disponibilite-en-temps-reel@parisdata",
			"rows":    10000,
			"format":  "json",
		},
		"records": records,
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot fixture: %w", err)
	}
	return append(payload, '\n'), nil
}
