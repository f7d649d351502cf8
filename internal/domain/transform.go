package domain

// TransformResult holds the two ordered record sets derived from one
// snapshot, plus the number of records dropped by the normalizer. Output
// order is input record order, so identical payloads yield identical results.
type TransformResult struct {
	Stations     []Station
	Availability []Availability
	Skipped      int
}

// TransformSnapshot derives station and availability rows from one raw
// snapshot. Records the normalizer rejects are counted and skipped; a single
// malformed record never aborts the batch. A payload with zero records yields
// empty slices, not an error. Only a payload that does not decode at all is
// reported as an error.
func TransformSnapshot(snap RawSnapshot) (TransformResult, error) {
	doc, err := decodePayload(snap.Payload)
	if err != nil {
		return TransformResult{}, err
	}

	result := TransformResult{
		Stations:     make([]Station, 0, len(doc.Records)),
		Availability: make([]Availability, 0, len(doc.Records)),
	}

	for _, rec := range doc.Records {
		station, availability, ok := NormalizeRecord(rec.Fields)
		if !ok {
			result.Skipped++
			continue
		}
		result.Stations = append(result.Stations, station)
		result.Availability = append(result.Availability, availability)
	}

	return result, nil
}
