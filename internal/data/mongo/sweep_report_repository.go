package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/archive"
)

const (
	// SweepReportCollectionName is the name of the reconciliation report
	// collection in MongoDB
	SweepReportCollectionName = "sweep_reports"
)

// SweepReportRepository implements the archive.SweepReportStore interface for MongoDB
type SweepReportRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewSweepReportRepository creates a new MongoDB sweep report repository
func NewSweepReportRepository(logger *slog.Logger, db *mongo.Database) archive.SweepReportStore {
	return &SweepReportRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends a reconciliation run summary
func (r *SweepReportRepository) Insert(ctx context.Context, report *archive.SweepReport) error {
	collection := r.db.Collection(SweepReportCollectionName)

	_, err := collection.InsertOne(ctx, report)
	if err != nil {
		r.logger.Error("Failed to insert sweep report",
			"report_id", report.ID.String(),
			"error", err)
		return fmt.Errorf("failed to insert sweep report: %w", err)
	}

	return nil
}

// Latest retrieves the most recent sweep report.
// Returns nil, nil when no sweep has run yet.
func (r *SweepReportRepository) Latest(ctx context.Context) (*archive.SweepReport, error) {
	collection := r.db.Collection(SweepReportCollectionName)

	opts := options.FindOne().SetSort(bson.M{"started_at": -1})
	var report archive.SweepReport
	err := collection.FindOne(ctx, bson.M{}, opts).Decode(&report)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to get latest sweep report", "error", err)
		return nil, fmt.Errorf("failed to get latest sweep report: %w", err)
	}

	return &report, nil
}
