package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/archive"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/shared"
)

const (
	// EventArchiveCollectionName is the name of the webhook event archive
	// collection in MongoDB
	EventArchiveCollectionName = "webhook_events"
)

// EventArchiveRepository implements the archive.Repository interface for MongoDB
type EventArchiveRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewEventArchiveRepository creates a new MongoDB event archive repository
func NewEventArchiveRepository(logger *slog.Logger, db *mongo.Database) archive.Repository {
	return &EventArchiveRepository{
		db:     db,
		logger: logger,
	}
}

// Archive appends a webhook delivery record. Each delivery gets its own
// record; retries of the same payment session are archived separately so the
// full delivery history stays visible.
func (r *EventArchiveRepository) Archive(ctx context.Context, rec *archive.EventRecord) error {
	collection := r.db.Collection(EventArchiveCollectionName)

	_, err := collection.InsertOne(ctx, rec)
	if err != nil {
		r.logger.Error("Failed to archive webhook event",
			"event_id", rec.EventID.String(),
			"session_id", rec.SessionID,
			"error", err)
		return fmt.Errorf("failed to archive webhook event: %w", err)
	}

	return nil
}

// SetDisposition records how the processor settled the event.
// Returns ErrRecordNotFound if no record was archived for the event.
func (r *EventArchiveRepository) SetDisposition(ctx context.Context, eventID uuid.UUID, disposition shared.Disposition, detail string) error {
	collection := r.db.Collection(EventArchiveCollectionName)

	filter := bson.M{"event_id": eventID}
	update := bson.M{
		"$set": bson.M{
			"disposition": disposition,
			"detail":      detail,
			"settled_at":  time.Now(),
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to update event disposition",
			"event_id", eventID.String(),
			"disposition", string(disposition),
			"error", err)
		return fmt.Errorf("failed to update event disposition: %w", err)
	}

	if result.MatchedCount == 0 {
		return archive.ErrRecordNotFound{EventID: eventID}
	}

	return nil
}

// GetByEventID retrieves an archived record by its event ID.
// Returns ErrRecordNotFound if no record exists for the event.
func (r *EventArchiveRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*archive.EventRecord, error) {
	collection := r.db.Collection(EventArchiveCollectionName)

	filter := bson.M{"event_id": eventID}
	var rec archive.EventRecord
	err := collection.FindOne(ctx, filter).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, archive.ErrRecordNotFound{EventID: eventID}
		}
		r.logger.Error("Failed to get archived event",
			"event_id", eventID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get archived event: %w", err)
	}

	return &rec, nil
}

// ListBySessionID retrieves every archived delivery for a payment session.
// Results are sorted by reception time in descending order (newest first).
func (r *EventArchiveRepository) ListBySessionID(ctx context.Context, sessionID string) ([]*archive.EventRecord, error) {
	collection := r.db.Collection(EventArchiveCollectionName)

	filter := bson.M{"session_id": sessionID}
	opts := options.Find().SetSort(bson.M{"received_at": -1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list archived events",
			"session_id", sessionID,
			"error", err)
		return nil, fmt.Errorf("failed to list archived events: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*archive.EventRecord
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode archived events",
			"session_id", sessionID,
			"error", err)
		return nil, fmt.Errorf("failed to decode archived events: %w", err)
	}

	return records, nil
}
