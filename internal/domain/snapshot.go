package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SourceTag identifies the upstream feed in stored snapshots.
const SourceTag = "velib_opendatasoft_api"

// ErrNoSnapshot is returned by snapshot stores when no snapshot has been
// ingested yet. The orchestrator reports it as a soft no-data outcome.
var ErrNoSnapshot = errors.New("no raw snapshot available")

// RawSnapshot is one captured copy of the feed, as persisted in the data
// lake. Payload holds the feed response bytes unmodified; snapshots are
// immutable once written and "latest" means the maximum IngestedAt.
type RawSnapshot struct {
	Payload     []byte
	IngestedAt  time.Time
	Source      string
	RecordCount int
}

// feedDocument mirrors the OpenDataSoft search response shape. Only the
// record list matters here; everything else in the payload is carried opaquely.
type feedDocument struct {
	NHits   int          `json:"nhits"`
	Records []feedRecord `json:"records"`
}

type feedRecord struct {
	Fields map[string]any `json:"fields"`
}

// decodePayload parses the snapshot payload into the feed document shape.
func decodePayload(payload []byte) (feedDocument, error) {
	var doc feedDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return feedDocument{}, fmt.Errorf("decode snapshot payload: %w", err)
	}
	return doc, nil
}
