package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rentflow-decision-ledger/internal/domain/decision"
)

const (
	// MirrorCollectionName is the name of the decision mirror collection in MongoDB
	MirrorCollectionName = "decision_mirror"
)

// MirrorRepository implements the decision.MirrorRepository interface for
// MongoDB. It holds the eventually-consistent reporting copy of confirmed
// payment decisions; the ledger stays authoritative.
type MirrorRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewMirrorRepository creates a new MongoDB mirror repository
func NewMirrorRepository(logger *slog.Logger, db *mongo.Database) decision.MirrorRepository {
	return &MirrorRepository{
		db:     db,
		logger: logger,
	}
}

// Save upserts a confirmed decision by its ledger-assigned id. Replaying the
// same decision after an execution update overwrites the earlier copy, so the
// mirror converges on the ledger's state.
func (r *MirrorRepository) Save(ctx context.Context, d *decision.PaymentDecision) error {
	collection := r.db.Collection(MirrorCollectionName)

	filter := bson.M{"decision_id": d.DecisionID}
	opts := options.Replace().SetUpsert(true)

	_, err := collection.ReplaceOne(ctx, filter, d, opts)
	if err != nil {
		r.logger.Error("Failed to save decision to mirror",
			"decision_id", d.DecisionID,
			"error", err)
		return fmt.Errorf("failed to save decision to mirror: %w", err)
	}

	return nil
}

// GetRecent retrieves paginated decisions sorted by ledger timestamp in
// descending order (newest first).
func (r *MirrorRepository) GetRecent(ctx context.Context, limit, offset int) ([]*decision.PaymentDecision, error) {
	collection := r.db.Collection(MirrorCollectionName)

	opts := options.Find().
		SetSort(bson.M{"timestamp": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.logger.Error("Failed to list recent decisions", "error", err)
		return nil, fmt.Errorf("failed to list recent decisions: %w", err)
	}
	defer cursor.Close(ctx)

	var decisions []*decision.PaymentDecision
	if err := cursor.All(ctx, &decisions); err != nil {
		r.logger.Error("Failed to decode mirrored decisions", "error", err)
		return nil, fmt.Errorf("failed to decode mirrored decisions: %w", err)
	}

	return decisions, nil
}

// timeRangeFilter selects ledger timestamps in [startTime, endTime). The end
// bound is exclusive so adjacent windows never double-count a decision.
func timeRangeFilter(startTime, endTime time.Time) bson.M {
	return bson.M{
		"timestamp": bson.M{
			"$gte": startTime,
			"$lt":  endTime,
		},
	}
}

// GetByTimeRange retrieves paginated decisions within the half-open ledger
// timestamp window [startTime, endTime), newest first.
func (r *MirrorRepository) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*decision.PaymentDecision, error) {
	collection := r.db.Collection(MirrorCollectionName)

	filter := timeRangeFilter(startTime, endTime)
	opts := options.Find().
		SetSort(bson.M{"timestamp": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list decisions by time range",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to list decisions by time range: %w", err)
	}
	defer cursor.Close(ctx)

	var decisions []*decision.PaymentDecision
	if err := cursor.All(ctx, &decisions); err != nil {
		r.logger.Error("Failed to decode mirrored decisions",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to decode mirrored decisions: %w", err)
	}

	return decisions, nil
}
