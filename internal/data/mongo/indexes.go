package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// analysisIndexes enforce at most one analysis per transaction. The unique
// index is the authoritative guard behind the ExistsByTransactionID
// pre-check; a racing insert surfaces as a duplicate-key error.
func analysisIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
}

// historyIndexes enforce one history entry per transaction and serve the
// per-wallet window queries the velocity and newness rules run.
func historyIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "wallet_id", Value: 1}, {Key: "occurred_at", Value: 1}},
		},
	}
}

func ruleIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "rule_code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
}

// EnsureIndexes creates the fraud-store indexes. Index creation is
// idempotent; it must run before any event is consumed.
func EnsureIndexes(ctx context.Context, logger *slog.Logger, db *mongo.Database) error {
	for collection, models := range map[string][]mongo.IndexModel{
		AnalysisCollectionName: analysisIndexes(),
		HistoryCollectionName:  historyIndexes(),
		RuleCollectionName:     ruleIndexes(),
	} {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", collection, err)
		}
		logger.Info("Ensured MongoDB indexes", "collection", collection, "indexes", len(models))
	}
	return nil
}
