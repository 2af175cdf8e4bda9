package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/library-circulation/internal/domain/history"
)

const (
	// HistoryCollectionName is the name of the circulation history collection in MongoDB
	HistoryCollectionName = "circulation_history"
)

var _ history.Repository = (*HistoryRepository)(nil)

// HistoryRepository implements the history.Repository interface for MongoDB
type HistoryRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewHistoryRepository creates a new MongoDB history repository
func NewHistoryRepository(logger *slog.Logger, db *mongo.Database) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique event index that makes projection idempotent,
// plus the lookup indexes behind the member and loan timelines.
func (r *HistoryRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(HistoryCollectionName)

	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "member_id", Value: 1}, {Key: "occurred_at", Value: -1}}},
		{Keys: bson.D{{Key: "loan_id", Value: 1}}},
	}
	if _, err := collection.Indexes().CreateMany(ctx, models); err != nil {
		r.logger.Error("Failed to create history indexes", "error", err)
		return fmt.Errorf("failed to create history indexes: %w", err)
	}
	return nil
}

// Create stores a new history entry.
// Returns ErrDuplicateEntry if the event was already projected.
func (r *HistoryRepository) Create(ctx context.Context, entry *history.Entry) error {
	collection := r.db.Collection(HistoryCollectionName)

	_, err := collection.InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return history.ErrDuplicateEntry{EventID: entry.EventID}
		}
		r.logger.Error("Failed to create history entry",
			"event_id", entry.EventID,
			"error", err)
		return fmt.Errorf("failed to create history entry: %w", err)
	}

	return nil
}

// GetByEventID retrieves a history entry by its event ID.
func (r *HistoryRepository) GetByEventID(ctx context.Context, eventID string) (*history.Entry, error) {
	collection := r.db.Collection(HistoryCollectionName)

	var entry history.Entry
	err := collection.FindOne(ctx, bson.M{"event_id": eventID}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, history.ErrEntryNotFound{EventID: eventID}
		}
		r.logger.Error("Failed to get history entry",
			"event_id", eventID,
			"error", err)
		return nil, fmt.Errorf("failed to get history entry: %w", err)
	}

	return &entry, nil
}

// GetByMemberID retrieves a page of the member's timeline, newest first.
func (r *HistoryRepository) GetByMemberID(ctx context.Context, memberID string, limit, offset int) ([]*history.Entry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	return r.find(ctx, bson.M{"member_id": memberID}, opts)
}

// CountByMemberID counts the member's history entries
func (r *HistoryRepository) CountByMemberID(ctx context.Context, memberID string) (int64, error) {
	collection := r.db.Collection(HistoryCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"member_id": memberID})
	if err != nil {
		r.logger.Error("Failed to count history entries",
			"member_id", memberID,
			"error", err)
		return 0, fmt.Errorf("failed to count history entries: %w", err)
	}

	return count, nil
}

// GetByLoanID returns every event recorded against a loan in the order they happened.
func (r *HistoryRepository) GetByLoanID(ctx context.Context, loanID string) ([]*history.Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}})
	return r.find(ctx, bson.M{"loan_id": loanID}, opts)
}

func (r *HistoryRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*history.Entry, error) {
	collection := r.db.Collection(HistoryCollectionName)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to find history entries", "filter", filter, "error", err)
		return nil, fmt.Errorf("failed to find history entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := make([]*history.Entry, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode history entries", "error", err)
		return nil, fmt.Errorf("failed to decode history entries: %w", err)
	}

	return entries, nil
}
