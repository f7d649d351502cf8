package postgres

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/velib-etl-service/internal/config"
	"github.com/couchcryptid/velib-etl-service/internal/domain"
)

// Empty batches must not touch the database at all, so these run against an
// unreachable DSN. Write-path behavior is covered by the integration suite.

func unreachableStore() *Store {
	cfg := config.PostgresConfig{
		Host: "unreachable.invalid", Port: "5432",
		User: "u", Password: "p", Database: "d", SSLMode: "disable",
	}
	return NewStore(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestUpsertStations_EmptyIsNoOp(t *testing.T) {
	n, err := unreachableStore().UpsertStations(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInsertAvailability_EmptyIsNoOp(t *testing.T) {
	n, err := unreachableStore().InsertAvailability(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRowPlaceholder(t *testing.T) {
	assert.Equal(t, "($1, $2, $3)", rowPlaceholder(0, 3))
	assert.Equal(t, "($4, $5, $6)", rowPlaceholder(1, 3))
	assert.Equal(t, "($19, $20, $21, $22, $23, $24, $25, $26, $27)", rowPlaceholder(2, 9))
}

func TestDedupeLastWins(t *testing.T) {
	t.Run("duplicate collapses to last occurrence", func(t *testing.T) {
		in := []domain.Station{
			{StationID: "16107", Name: "old name", Capacity: 10},
			{StationID: "10042", Name: "other"},
			{StationID: "16107", Name: "new name", Capacity: 35},
		}

		out := dedupeLastWins(in)

		require.Len(t, out, 2)
		assert.Equal(t, "16107", out[0].StationID)
		assert.Equal(t, "new name", out[0].Name)
		assert.Equal(t, 35, out[0].Capacity)
		assert.Equal(t, "10042", out[1].StationID)
	})

	t.Run("no duplicates passes through", func(t *testing.T) {
		in := []domain.Station{{StationID: "1"}, {StationID: "2"}}
		assert.Equal(t, in, dedupeLastWins(in))
	})

	t.Run("single row passes through", func(t *testing.T) {
		in := []domain.Station{{StationID: "1"}}
		assert.Equal(t, in, dedupeLastWins(in))
	})
}
