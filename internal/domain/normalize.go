package domain

import (
	"strconv"
	"strings"
	"time"
)

// yesToken is the feed's affirmative value for the boolean-like fields.
// Exactly this token maps to true; anything else, including absence, is false.
const yesToken = "OUI"

// eventTimeLayout matches duedate after its "+00:00" suffix is stripped.
const eventTimeLayout = "2006-01-02T15:04:05"

// EventTimeSource names where an availability row's event time came from.
type EventTimeSource string

const (
	// EventTimeReported means the feed's duedate parsed cleanly.
	EventTimeReported EventTimeSource = "reported"
	// EventTimeSubstituted means duedate was absent or unparseable and the
	// current processing time was used instead.
	EventTimeSubstituted EventTimeSource = "substituted"
)

// NormalizeRecord maps one loosely typed feed record to a station dimension
// row and an availability fact row. The second return is false when the
// record has no usable station identifier and must be skipped entirely.
func NormalizeRecord(fields map[string]any) (Station, Availability, bool) {
	stationID := asString(fields["stationcode"])
	if stationID == "" {
		return Station{}, Availability{}, false
	}

	lat, lon := coordinatePair(fields["coordonnees_geo"])

	station := Station{
		StationID:      stationID,
		Name:           asString(fields["name"]),
		Latitude:       lat,
		Longitude:      lon,
		Capacity:       asInt(fields["capacity"]),
		Arrondissement: asString(fields["nom_arrondissement_communes"]),
		CodeINSEE:      asString(fields["code_insee_commune"]),
	}

	lastReported, _ := ParseEventTime(fields["duedate"])

	availability := Availability{
		StationID:       stationID,
		BikesAvailable:  asInt(fields["numbikesavailable"]),
		BikesMechanical: asInt(fields["mechanical"]),
		BikesEbike:      asInt(fields["ebike"]),
		DocksAvailable:  asInt(fields["numdocksavailable"]),
		IsInstalled:     asString(fields["is_installed"]) == yesToken,
		IsRenting:       asString(fields["is_renting"]) == yesToken,
		IsReturning:     asString(fields["is_returning"]) == yesToken,
		LastReported:    lastReported,
	}

	return station, availability, true
}

// ParseEventTime parses a duedate value, stripping the feed's fixed "+00:00"
// timezone suffix. On absence or parse failure it substitutes the current
// processing time from the package clock and reports [EventTimeSubstituted].
func ParseEventTime(value any) (time.Time, EventTimeSource) {
	s := strings.TrimSpace(asString(value))
	if s == "" {
		return Now(), EventTimeSubstituted
	}

	s = strings.TrimSuffix(s, "+00:00")
	t, err := time.ParseInLocation(eventTimeLayout, s, time.UTC)
	if err != nil {
		return Now(), EventTimeSubstituted
	}
	return t, EventTimeReported
}

// coordinatePair reads a [latitude, longitude] pair. Missing or short pairs
// default both coordinates to 0; no range validation is applied.
func coordinatePair(value any) (float64, float64) {
	coords, ok := value.([]any)
	if !ok {
		return 0, 0
	}

	var lat, lon float64
	if len(coords) > 0 {
		lat = asFloat(coords[0])
	}
	if len(coords) > 1 {
		lon = asFloat(coords[1])
	}
	return lat, lon
}

// asString returns the value as a string, or "" for anything that isn't one.
func asString(value any) string {
	s, ok := value.(string)
	if !ok {
		return ""
	}
	return s
}

// asInt coerces count-like fields. JSON decoding yields float64 for all
// numbers; numeric strings are tolerated, everything else becomes 0.
func asInt(value any) int {
	switch v := value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// asFloat coerces coordinate values, returning 0 for anything non-numeric.
func asFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
