// Package mongodb persists raw feed snapshots in the MongoDB data lake.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/couchcryptid/velib-etl-service/internal/config"
	"github.com/couchcryptid/velib-etl-service/internal/domain"
)

// collectionName is the append-only collection holding ingested snapshots.
const collectionName = "velib_raw"

// snapshotDoc is the stored document shape. Data carries the feed payload
// bytes as-is so a snapshot read back is byte-identical to what was ingested.
type snapshotDoc struct {
	Data         string    `bson:"data"`
	IngestedAt   time.Time `bson:"ingested_at"`
	Source       string    `bson:"source"`
	RecordsCount int       `bson:"records_count"`
}

// Store reads and writes raw snapshots. Each operation dials its own
// connection and disconnects on every exit path; nothing is pooled across
// runs.
type Store struct {
	cfg    config.MongoConfig
	logger *slog.Logger
}

// NewStore creates a snapshot store from explicit connection settings.
func NewStore(cfg config.MongoConfig, logger *slog.Logger) *Store {
	return &Store{cfg: cfg, logger: logger}
}

// Insert appends one snapshot to the data lake and returns its document ID.
func (s *Store) Insert(ctx context.Context, snap domain.RawSnapshot) (string, error) {
	client, err := s.connect(ctx)
	if err != nil {
		return "", err
	}
	defer s.disconnect(ctx, client)

	doc := snapshotDoc{
		Data:         string(snap.Payload),
		IngestedAt:   snap.IngestedAt,
		Source:       snap.Source,
		RecordsCount: snap.RecordCount,
	}

	result, err := s.collection(client).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}

	return fmt.Sprintf("%v", result.InsertedID), nil
}

// ReadLatest returns the snapshot with the greatest ingestion time, or
// domain.ErrNoSnapshot when the collection is empty.
func (s *Store) ReadLatest(ctx context.Context) (domain.RawSnapshot, error) {
	client, err := s.connect(ctx)
	if err != nil {
		return domain.RawSnapshot{}, err
	}
	defer s.disconnect(ctx, client)

	opts := options.FindOne().SetSort(bson.D{{Key: "ingested_at", Value: -1}})

	var doc snapshotDoc
	err = s.collection(client).FindOne(ctx, bson.D{}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.RawSnapshot{}, domain.ErrNoSnapshot
	}
	if err != nil {
		return domain.RawSnapshot{}, fmt.Errorf("read latest snapshot: %w", err)
	}

	return domain.RawSnapshot{
		Payload:     []byte(doc.Data),
		IngestedAt:  doc.IngestedAt.UTC(),
		Source:      doc.Source,
		RecordCount: doc.RecordsCount,
	}, nil
}

func (s *Store) connect(ctx context.Context) (*mongo.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(dialCtx, options.Client().
		ApplyURI(s.cfg.URI()).
		SetConnectTimeout(s.cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("connect snapshot store: %w", err)
	}
	return client, nil
}

func (s *Store) disconnect(ctx context.Context, client *mongo.Client) {
	if err := client.Disconnect(ctx); err != nil {
		s.logger.Warn("snapshot store disconnect failed", "error", err)
	}
}

func (s *Store) collection(client *mongo.Client) *mongo.Collection {
	return client.Database(s.cfg.Database).Collection(collectionName)
}
