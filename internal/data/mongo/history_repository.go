package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/event-driven-wallet/internal/domain/fraud"
)

const (
	// HistoryCollectionName is the name of the transaction history collection in MongoDB
	HistoryCollectionName = "transaction_history"
)

// historyDocument is the stored shape of one history entry
type historyDocument struct {
	TransactionID   string               `bson:"transaction_id"`
	WalletID        string               `bson:"wallet_id"`
	UserID          string               `bson:"user_id"`
	Amount          primitive.Decimal128 `bson:"amount"`
	TransactionType string               `bson:"transaction_type"`
	Currency        string               `bson:"currency"`
	OccurredAt      time.Time            `bson:"occurred_at"`
}

func toHistoryDocument(entry *fraud.HistoryEntry) (*historyDocument, error) {
	amount, err := toDecimal128(entry.Amount)
	if err != nil {
		return nil, err
	}
	return &historyDocument{
		TransactionID:   entry.TransactionID.String(),
		WalletID:        entry.WalletID.String(),
		UserID:          entry.UserID.String(),
		Amount:          amount,
		TransactionType: entry.TransactionType,
		Currency:        entry.Currency,
		OccurredAt:      entry.OccurredAt,
	}, nil
}

// HistoryRepository implements the fraud.HistoryRepository interface for
// MongoDB. The collection is append-only; velocity, newness and
// average-amount aggregates are computed server-side.
type HistoryRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewHistoryRepository creates a new MongoDB transaction history repository
func NewHistoryRepository(logger *slog.Logger, db *mongo.Database) fraud.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a history entry
func (r *HistoryRepository) Create(ctx context.Context, entry *fraud.HistoryEntry) error {
	collection := r.db.Collection(HistoryCollectionName)

	doc, err := toHistoryDocument(entry)
	if err != nil {
		return err
	}

	_, err = collection.InsertOne(ctx, doc)
	if err != nil {
		// One entry per transaction id; a duplicate insert is a redelivery
		// that lost the race against the existence pre-check.
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("History entry already recorded",
				"transaction_id", entry.TransactionID.String())
			return nil
		}
		r.logger.Error("Failed to create history entry",
			"transaction_id", entry.TransactionID.String(),
			"error", err)
		return fmt.Errorf("failed to create history entry: %w", err)
	}

	return nil
}

// ExistsByTransactionID reports whether the transaction is already recorded
func (r *HistoryRepository) ExistsByTransactionID(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{"transaction_id": transactionID.String()}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to check history entry existence",
			"transaction_id", transactionID.String(),
			"error", err)
		return false, fmt.Errorf("failed to check history entry existence: %w", err)
	}

	return count > 0, nil
}

// CountByWalletSince counts history entries for a wallet since the cutoff.
// Velocity rules compare this count against their threshold.
func (r *HistoryRepository) CountByWalletSince(ctx context.Context, walletID uuid.UUID, since time.Time) (int64, error) {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{
		"wallet_id":   walletID.String(),
		"occurred_at": bson.M{"$gte": since},
	}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count history entries",
			"wallet_id", walletID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count history entries: %w", err)
	}

	return count, nil
}

// FirstOccurredAt returns the timestamp of the wallet's earliest history
// entry, or nil when the wallet has no history.
func (r *HistoryRepository) FirstOccurredAt(ctx context.Context, walletID uuid.UUID) (*time.Time, error) {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{"wallet_id": walletID.String()}
	opts := options.FindOne().SetSort(bson.M{"occurred_at": 1}) // earliest first

	var doc historyDocument
	err := collection.FindOne(ctx, filter, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // No history for this wallet
		}
		r.logger.Error("Failed to get earliest history entry",
			"wallet_id", walletID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get earliest history entry: %w", err)
	}

	return &doc.OccurredAt, nil
}

// AverageAmount computes the average transaction amount of a wallet's
// history. Returns zero when the wallet has no history.
func (r *HistoryRepository) AverageAmount(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	collection := r.db.Collection(HistoryCollectionName)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"wallet_id": walletID.String()}}},
		{{Key: "$group", Value: bson.M{
			"_id":        nil,
			"avg_amount": bson.M{"$avg": "$amount"},
		}}},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		r.logger.Error("Failed to aggregate average amount",
			"wallet_id", walletID.String(),
			"error", err)
		return decimal.Zero, fmt.Errorf("failed to aggregate average amount: %w", err)
	}
	defer cursor.Close(ctx)

	var result struct {
		AvgAmount primitive.Decimal128 `bson:"avg_amount"`
	}
	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return decimal.Zero, fmt.Errorf("failed to read average amount: %w", err)
		}
		return decimal.Zero, nil // No history for this wallet
	}
	if err := cursor.Decode(&result); err != nil {
		r.logger.Error("Failed to decode average amount",
			"wallet_id", walletID.String(),
			"error", err)
		return decimal.Zero, fmt.Errorf("failed to decode average amount: %w", err)
	}

	return fromDecimal128(result.AvgAmount)
}
