package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFields() map[string]any {
	return map[string]any{
		"stationcode":                 "16107",
		"name":                        "Benjamin Godard - Victor Hugo",
		"coordonnees_geo":             []any{48.865983, 2.275725},
		"capacity":                    float64(35),
		"nom_arrondissement_communes": "Paris 16ème",
		"code_insee_commune":          "75116",
		"numbikesavailable":           float64(12),
		"mechanical":                  float64(8),
		"ebike":                       float64(4),
		"numdocksavailable":           float64(23),
		"is_installed":                "OUI",
		"is_renting":                  "OUI",
		"is_returning":                "NON",
		"duedate":                     "2024-01-15T10:30:00+00:00",
	}
}

func TestNormalizeRecord(t *testing.T) {
	t.Run("well-formed record", func(t *testing.T) {
		station, availability, ok := NormalizeRecord(sampleFields())

		require.True(t, ok)
		assert.Equal(t, "16107", station.StationID)
		assert.Equal(t, "Benjamin Godard - Victor Hugo", station.Name)
		assert.Equal(t, 48.865983, station.Latitude)
		assert.Equal(t, 2.275725, station.Longitude)
		assert.Equal(t, 35, station.Capacity)
		assert.Equal(t, "Paris 16ème", station.Arrondissement)
		assert.Equal(t, "75116", station.CodeINSEE)

		assert.Equal(t, "16107", availability.StationID)
		assert.Equal(t, 12, availability.BikesAvailable)
		assert.Equal(t, 8, availability.BikesMechanical)
		assert.Equal(t, 4, availability.BikesEbike)
		assert.Equal(t, 23, availability.DocksAvailable)
		assert.True(t, availability.IsInstalled)
		assert.True(t, availability.IsRenting)
		assert.False(t, availability.IsReturning)
		assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), availability.LastReported)
	})

	t.Run("missing stationcode skips record", func(t *testing.T) {
		fields := sampleFields()
		delete(fields, "stationcode")

		_, _, ok := NormalizeRecord(fields)
		assert.False(t, ok)
	})

	t.Run("empty stationcode skips record", func(t *testing.T) {
		fields := sampleFields()
		fields["stationcode"] = ""

		_, _, ok := NormalizeRecord(fields)
		assert.False(t, ok)
	})

	t.Run("missing coordinates default to zero", func(t *testing.T) {
		fields := sampleFields()
		delete(fields, "coordonnees_geo")

		station, _, ok := NormalizeRecord(fields)
		require.True(t, ok)
		assert.Zero(t, station.Latitude)
		assert.Zero(t, station.Longitude)
	})

	t.Run("short coordinate pair fills what it has", func(t *testing.T) {
		fields := sampleFields()
		fields["coordonnees_geo"] = []any{48.85}

		station, _, ok := NormalizeRecord(fields)
		require.True(t, ok)
		assert.Equal(t, 48.85, station.Latitude)
		assert.Zero(t, station.Longitude)
	})

	t.Run("missing counts default to zero", func(t *testing.T) {
		fields := map[string]any{"stationcode": "10042"}

		station, availability, ok := NormalizeRecord(fields)
		require.True(t, ok)
		assert.Zero(t, station.Capacity)
		assert.Zero(t, availability.BikesAvailable)
		assert.Zero(t, availability.BikesMechanical)
		assert.Zero(t, availability.BikesEbike)
		assert.Zero(t, availability.DocksAvailable)
	})

	t.Run("non-numeric counts default to zero", func(t *testing.T) {
		fields := sampleFields()
		fields["capacity"] = "plenty"
		fields["numbikesavailable"] = map[string]any{"n": 3}

		station, availability, ok := NormalizeRecord(fields)
		require.True(t, ok)
		assert.Zero(t, station.Capacity)
		assert.Zero(t, availability.BikesAvailable)
	})

	t.Run("numeric strings are tolerated", func(t *testing.T) {
		fields := sampleFields()
		fields["capacity"] = "35"

		station, _, ok := NormalizeRecord(fields)
		require.True(t, ok)
		assert.Equal(t, 35, station.Capacity)
	})
}

func TestNormalizeRecord_BooleanTokens(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected bool
	}{
		{"yes token", "OUI", true},
		{"no token", "NON", false},
		{"absent", nil, false},
		{"lowercase is not the token", "oui", false},
		{"unrelated string", "peut-être", false},
		{"non-string", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := sampleFields()
			if tt.value == nil {
				delete(fields, "is_installed")
			} else {
				fields["is_installed"] = tt.value
			}

			_, availability, ok := NormalizeRecord(fields)
			require.True(t, ok)
			assert.Equal(t, tt.expected, availability.IsInstalled)
		})
	}
}

func TestParseEventTime(t *testing.T) {
	frozen := time.Date(2024, 1, 15, 10, 35, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	defer SetClock(nil)

	t.Run("reported time with timezone suffix", func(t *testing.T) {
		parsed, source := ParseEventTime("2024-01-15T10:30:00+00:00")

		assert.Equal(t, EventTimeReported, source)
		assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), parsed)
	})

	t.Run("reported time without suffix", func(t *testing.T) {
		parsed, source := ParseEventTime("2024-01-15T10:30:00")

		assert.Equal(t, EventTimeReported, source)
		assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), parsed)
	})

	t.Run("absent duedate substitutes processing time", func(t *testing.T) {
		parsed, source := ParseEventTime(nil)

		assert.Equal(t, EventTimeSubstituted, source)
		assert.Equal(t, frozen, parsed)
	})

	t.Run("garbage duedate substitutes processing time", func(t *testing.T) {
		parsed, source := ParseEventTime("yesterday-ish")

		assert.Equal(t, EventTimeSubstituted, source)
		assert.Equal(t, frozen, parsed)
	})

	t.Run("non-string duedate substitutes processing time", func(t *testing.T) {
		parsed, source := ParseEventTime(float64(1705314600))

		assert.Equal(t, EventTimeSubstituted, source)
		assert.Equal(t, frozen, parsed)
	})
}
