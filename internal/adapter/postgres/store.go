// Package postgres owns the two warehouse relations: the stations dimension
// and the append-only station_availability fact table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/couchcryptid/velib-etl-service/internal/config"
	"github.com/couchcryptid/velib-etl-service/internal/domain"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS stations (
    station_id VARCHAR(20) PRIMARY KEY,
    name VARCHAR(255),
    latitude DECIMAL(10, 8),
    longitude DECIMAL(11, 8),
    capacity INTEGER,
    arrondissement VARCHAR(100),
    code_insee VARCHAR(10),
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS station_availability (
    id SERIAL PRIMARY KEY,
    station_id VARCHAR(20) REFERENCES stations(station_id),
    num_bikes_available INTEGER,
    num_bikes_mechanical INTEGER,
    num_bikes_ebike INTEGER,
    num_docks_available INTEGER,
    is_installed BOOLEAN,
    is_renting BOOLEAN,
    is_returning BOOLEAN,
    last_reported TIMESTAMP,
    ingested_at TIMESTAMP DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_availability_station_time
ON station_availability(station_id, ingested_at);
`

// Store writes to the relational sink. Every operation opens its own
// connection for the duration of the call and releases it on all exit paths;
// each batch runs in a single transaction, so a call either commits whole or
// not at all.
type Store struct {
	cfg    config.PostgresConfig
	logger *slog.Logger
}

// NewStore creates a sink from explicit connection settings.
func NewStore(cfg config.PostgresConfig, logger *slog.Logger) *Store {
	return &Store{cfg: cfg, logger: logger}
}

// EnsureSchema creates the tables and index if absent. Safe to call on every run.
func (s *Store) EnsureSchema(ctx context.Context) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// UpsertStations writes the dimension rows in one batched statement. New
// station_ids are inserted; existing ones have all mutable fields overwritten
// and updated_at refreshed, leaving created_at untouched. Conflict resolution
// is last-write-wins, so duplicate station_ids within the batch collapse to
// the last occurrence. Returns the number of rows written; an empty input is
// a no-op returning 0.
func (s *Store) UpsertStations(ctx context.Context, stations []domain.Station) (int, error) {
	stations = dedupeLastWins(stations)
	if len(stations) == 0 {
		return 0, nil
	}

	db, err := s.open(ctx)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	const cols = 7
	placeholders := make([]string, 0, len(stations))
	args := make([]any, 0, len(stations)*cols)
	for i, st := range stations {
		placeholders = append(placeholders, rowPlaceholder(i, cols))
		args = append(args, st.StationID, st.Name, st.Latitude, st.Longitude,
			st.Capacity, st.Arrondissement, st.CodeINSEE)
	}

	query := fmt.Sprintf(`
		INSERT INTO stations (station_id, name, latitude, longitude, capacity, arrondissement, code_insee)
		VALUES %s
		ON CONFLICT (station_id) DO UPDATE SET
			name = EXCLUDED.name,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			capacity = EXCLUDED.capacity,
			arrondissement = EXCLUDED.arrondissement,
			code_insee = EXCLUDED.code_insee,
			updated_at = NOW()`,
		strings.Join(placeholders, ", "))

	if err := s.execInTx(ctx, db, query, args); err != nil {
		return 0, fmt.Errorf("upsert stations: %w", err)
	}

	return len(stations), nil
}

// InsertAvailability appends the fact rows in one batched statement. Rows
// have no natural key and are never deduplicated; re-running the same batch
// produces independent rows. Returns the number of rows written; an empty
// input is a no-op returning 0.
func (s *Store) InsertAvailability(ctx context.Context, rows []domain.Availability) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	db, err := s.open(ctx)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	const cols = 9
	placeholders := make([]string, 0, len(rows))
	args := make([]any, 0, len(rows)*cols)
	for i, a := range rows {
		placeholders = append(placeholders, rowPlaceholder(i, cols))
		args = append(args, a.StationID, a.BikesAvailable, a.BikesMechanical, a.BikesEbike,
			a.DocksAvailable, a.IsInstalled, a.IsRenting, a.IsReturning, a.LastReported)
	}

	query := fmt.Sprintf(`
		INSERT INTO station_availability
		(station_id, num_bikes_available, num_bikes_mechanical, num_bikes_ebike,
		 num_docks_available, is_installed, is_renting, is_returning, last_reported)
		VALUES %s`,
		strings.Join(placeholders, ", "))

	if err := s.execInTx(ctx, db, query, args); err != nil {
		return 0, fmt.Errorf("insert availability: %w", err)
	}

	return len(rows), nil
}

// open dials a fresh connection and verifies it before use.
func (s *Store) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("postgres", s.cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open sink connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sink: %w", err)
	}
	return db, nil
}

// execInTx runs one statement inside its own transaction.
func (s *Store) execInTx(ctx context.Context, db *sql.DB, query string, args []any) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// rowPlaceholder renders "($n, $n+1, ...)" for row i with the given width.
func rowPlaceholder(row, cols int) string {
	parts := make([]string, cols)
	for c := range cols {
		parts[c] = fmt.Sprintf("$%d", row*cols+c+1)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// dedupeLastWins collapses duplicate station_ids to their last occurrence,
// preserving first-appearance order. Postgres rejects a multi-row upsert that
// touches the same key twice.
func dedupeLastWins(stations []domain.Station) []domain.Station {
	if len(stations) < 2 {
		return stations
	}

	index := make(map[string]int, len(stations))
	out := make([]domain.Station, 0, len(stations))
	for _, st := range stations {
		if i, seen := index[st.StationID]; seen {
			out[i] = st
			continue
		}
		index[st.StationID] = len(out)
		out = append(out, st)
	}
	return out
}
