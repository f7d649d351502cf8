// Command validate runs a snapshot fixture through the real transform path
// and checks the invariants the warehouse relies on: record accounting,
// dimension/fact pairing, required identifiers, and boolean decoding. It is
// an offline dry run; nothing is loaded anywhere.
//
// Usage:
//
//	go run ./cmd/validate -snapshot internal/domain/testdata/velib_snapshot.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/velib-etl-service/internal/domain"
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
	snapshotPath := flag.String("snapshot", "", "path to a raw snapshot JSON payload")
	flag.Parse()

	if *snapshotPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*snapshotPath))
}

func run(snapshotPath string) int {
	payload, err := os.ReadFile(snapshotPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read snapshot: %v\n", err)
		return 1
	}

	// Freeze the clock so substituted event times are recognizable.
	frozen := time.Date(2024, time.January, 15, 10, 35, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	defer domain.SetClock(nil)

	result, err := domain.TransformSnapshot(domain.RawSnapshot{Payload: payload})
	if err != nil {
		fmt.Fprintf(os.Stderr, "transform: %v\n", err)
		return 1
	}

	phases := []*phase{
		checkAccounting(payload, result),
		checkPairing(result),
		checkDeterminism(payload, result),
	}

	failed := 0
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		failed++
		fmt.Printf("FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("     %s\n", e)
		}
	}

	fmt.Printf("\n%d stations, %d availability rows, %d skipped\n",
		len(result.Stations), len(result.Availability), result.Skipped)

	if failed > 0 {
		return 1
	}
	return 0
}

// checkAccounting verifies every source record is either emitted or counted
// as skipped, never both, never neither.
func checkAccounting(payload []byte, result domain.TransformResult) *phase {
	p := &phase{name: "record accounting"}

	var doc struct {
		Records []json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		p.errorf("decode payload: %v", err)
		return p
	}

	emitted := len(result.Stations)
	if emitted+result.Skipped != len(doc.Records) {
		p.errorf("records=%d but emitted=%d skipped=%d", len(doc.Records), emitted, result.Skipped)
	}
	return p
}

// checkPairing verifies the two sequences stay aligned: one availability row
// per station, in the same order, with a non-empty shared identifier.
func checkPairing(result domain.TransformResult) *phase {
	p := &phase{name: "dimension/fact pairing"}

	if len(result.Stations) != len(result.Availability) {
		p.errorf("stations=%d availability=%d", len(result.Stations), len(result.Availability))
		return p
	}
	for i, st := range result.Stations {
		if st.StationID == "" {
			p.errorf("station %d has empty station_id", i)
		}
		if st.StationID != result.Availability[i].StationID {
			p.errorf("row %d: station %q paired with availability %q",
				i, st.StationID, result.Availability[i].StationID)
		}
		if result.Availability[i].LastReported.IsZero() {
			p.errorf("row %d: zero last_reported", i)
		}
	}
	return p
}

// checkDeterminism verifies a second transform of the same bytes yields the
// same output.
func checkDeterminism(payload []byte, first domain.TransformResult) *phase {
	p := &phase{name: "determinism"}

	second, err := domain.TransformSnapshot(domain.RawSnapshot{Payload: payload})
	if err != nil {
		p.errorf("second transform: %v", err)
		return p
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		p.errorf("second transform differs from first")
	}
	return p
}
