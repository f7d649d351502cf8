// Package pipeline drives single ETL runs: the extract run that snapshots the
// feed into the data lake, and the transform+load run that derives the two
// warehouse relations from the latest snapshot.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/velib-etl-service/internal/domain"
	"github.com/couchcryptid/velib-etl-service/internal/observability"
)

// SnapshotReader reads the most recent raw snapshot from the data lake.
type SnapshotReader interface {
	ReadLatest(ctx context.Context) (domain.RawSnapshot, error)
}

// StationSink owns the two warehouse relations.
type StationSink interface {
	EnsureSchema(ctx context.Context) error
	UpsertStations(ctx context.Context, stations []domain.Station) (int, error)
	InsertAvailability(ctx context.Context, rows []domain.Availability) (int, error)
}

// Outcome classifies how a transform+load run ended. Soft outcomes are
// expected "nothing to do" results, not errors.
type Outcome string

const (
	// OutcomeLoaded means both relations were written.
	OutcomeLoaded Outcome = "loaded"
	// OutcomeNoData means no snapshot has been ingested yet.
	OutcomeNoData Outcome = "no_data"
	// OutcomeNoStations means the snapshot yielded zero valid stations.
	OutcomeNoStations Outcome = "no_stations"
)

// RunSummary reports one transform+load run.
type RunSummary struct {
	RunID              string    `json:"run_id"`
	Outcome            Outcome   `json:"outcome"`
	StationsLoaded     int       `json:"stations_loaded"`
	AvailabilityLoaded int       `json:"availability_loaded"`
	RecordsSkipped     int       `json:"records_skipped"`
	RunTime            time.Time `json:"run_time"`
}

// TransformLoad orchestrates one transform+load run. It never retries
// internally; hard failures propagate to the scheduler with the failing stage
// named in the error.
type TransformLoad struct {
	snapshots SnapshotReader
	sink      StationSink
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// NewTransformLoad creates the transform+load orchestrator.
func NewTransformLoad(snapshots SnapshotReader, sink StationSink, logger *slog.Logger, metrics *observability.Metrics) *TransformLoad {
	return &TransformLoad{
		snapshots: snapshots,
		sink:      sink,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once at least one run has loaded data.
func (p *TransformLoad) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no transform+load run has completed yet")
	}
	return nil
}

// Run executes one run: bootstrap schema, read the latest snapshot, transform
// it, then load the dimension before the facts. Absent snapshots and empty
// transforms end the run with a soft outcome without touching the sink's
// write paths.
func (p *TransformLoad) Run(ctx context.Context) (RunSummary, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID, "stage", observability.StageTransformLoad)
	start := time.Now()
	defer func() {
		p.metrics.RunDuration.WithLabelValues(observability.StageTransformLoad).Observe(time.Since(start).Seconds())
	}()

	if err := p.sink.EnsureSchema(ctx); err != nil {
		return p.fail(runID, fmt.Errorf("bootstrap schema: %w", err))
	}

	snap, err := p.snapshots.ReadLatest(ctx)
	if errors.Is(err, domain.ErrNoSnapshot) {
		logger.Info("no snapshot ingested yet, nothing to do")
		return p.soft(runID, OutcomeNoData, domain.TransformResult{}), nil
	}
	if err != nil {
		return p.fail(runID, fmt.Errorf("read snapshot: %w", err))
	}

	result, err := domain.TransformSnapshot(snap)
	if err != nil {
		return p.fail(runID, fmt.Errorf("transform: %w", err))
	}
	p.metrics.RecordsSkipped.Add(float64(result.Skipped))

	if len(result.Stations) == 0 {
		logger.Info("snapshot yielded no stations", "skipped", result.Skipped)
		return p.soft(runID, OutcomeNoStations, result), nil
	}

	// Dimension rows first so fact rows never reference stations the
	// dimension has not seen.
	stationsLoaded, err := p.sink.UpsertStations(ctx, result.Stations)
	if err != nil {
		return p.fail(runID, fmt.Errorf("load stations: %w", err))
	}

	availabilityLoaded, err := p.sink.InsertAvailability(ctx, result.Availability)
	if err != nil {
		return p.fail(runID, fmt.Errorf("load availability: %w", err))
	}

	p.metrics.StationsLoaded.Add(float64(stationsLoaded))
	p.metrics.AvailabilityLoaded.Add(float64(availabilityLoaded))
	p.metrics.RunsTotal.WithLabelValues(observability.StageTransformLoad, string(OutcomeLoaded)).Inc()
	p.ready.Store(true)

	summary := RunSummary{
		RunID:              runID,
		Outcome:            OutcomeLoaded,
		StationsLoaded:     stationsLoaded,
		AvailabilityLoaded: availabilityLoaded,
		RecordsSkipped:     result.Skipped,
		RunTime:            domain.Now(),
	}
	logger.Info("transform+load run complete",
		"stations_loaded", summary.StationsLoaded,
		"availability_loaded", summary.AvailabilityLoaded,
		"records_skipped", summary.RecordsSkipped,
	)
	return summary, nil
}

func (p *TransformLoad) soft(runID string, outcome Outcome, result domain.TransformResult) RunSummary {
	p.metrics.RunsTotal.WithLabelValues(observability.StageTransformLoad, string(outcome)).Inc()
	return RunSummary{
		RunID:          runID,
		Outcome:        outcome,
		RecordsSkipped: result.Skipped,
		RunTime:        domain.Now(),
	}
}

func (p *TransformLoad) fail(runID string, err error) (RunSummary, error) {
	p.metrics.RunsTotal.WithLabelValues(observability.StageTransformLoad, "error").Inc()
	return RunSummary{RunID: runID}, err
}
