package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/event-driven-wallet/internal/domain/fraud"
)

const (
	// AnalysisCollectionName is the name of the fraud analysis collection in MongoDB
	AnalysisCollectionName = "fraud_analyses"
)

// analysisDocument is the stored shape of a fraud analysis
type analysisDocument struct {
	ID              string               `bson:"_id"`
	TransactionID   string               `bson:"transaction_id"`
	WalletID        string               `bson:"wallet_id"`
	UserID          string               `bson:"user_id"`
	Amount          primitive.Decimal128 `bson:"amount"`
	TransactionType string               `bson:"transaction_type"`
	RiskScore       int                  `bson:"risk_score"`
	TriggeredRules  []string             `bson:"triggered_rules"`
	Decision        string               `bson:"decision"`
	AnalyzedAt      time.Time            `bson:"analyzed_at"`
}

func toAnalysisDocument(analysis *fraud.Analysis) (*analysisDocument, error) {
	amount, err := toDecimal128(analysis.Amount)
	if err != nil {
		return nil, err
	}
	return &analysisDocument{
		ID:              analysis.ID.String(),
		TransactionID:   analysis.TransactionID.String(),
		WalletID:        analysis.WalletID.String(),
		UserID:          analysis.UserID.String(),
		Amount:          amount,
		TransactionType: analysis.TransactionType,
		RiskScore:       analysis.RiskScore,
		TriggeredRules:  analysis.TriggeredRules,
		Decision:        string(analysis.Decision),
		AnalyzedAt:      analysis.AnalyzedAt,
	}, nil
}

func (d *analysisDocument) toDomain() (*fraud.Analysis, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse analysis id: %w", err)
	}
	transactionID, err := uuid.Parse(d.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse analysis transaction id: %w", err)
	}
	walletID, err := uuid.Parse(d.WalletID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse analysis wallet id: %w", err)
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse analysis user id: %w", err)
	}
	return &fraud.Analysis{
		ID:              id,
		TransactionID:   transactionID,
		WalletID:        walletID,
		UserID:          userID,
		Amount:          amount,
		TransactionType: d.TransactionType,
		RiskScore:       d.RiskScore,
		TriggeredRules:  d.TriggeredRules,
		Decision:        fraud.Decision(d.Decision),
		AnalyzedAt:      d.AnalyzedAt,
	}, nil
}

// AnalysisRepository implements the fraud.AnalysisRepository interface for MongoDB
type AnalysisRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAnalysisRepository creates a new MongoDB fraud analysis repository
func NewAnalysisRepository(logger *slog.Logger, db *mongo.Database) fraud.AnalysisRepository {
	return &AnalysisRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new analysis after checking for duplicates.
// Returns ErrDuplicateAnalysis if the transaction was already analyzed.
func (r *AnalysisRepository) Create(ctx context.Context, analysis *fraud.Analysis) error {
	collection := r.db.Collection(AnalysisCollectionName)

	exists, err := r.ExistsByTransactionID(ctx, analysis.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to check for existing analysis: %w", err)
	}
	if exists {
		return fraud.ErrDuplicateAnalysis{TransactionID: analysis.TransactionID}
	}

	doc, err := toAnalysisDocument(analysis)
	if err != nil {
		return err
	}

	_, err = collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fraud.ErrDuplicateAnalysis{TransactionID: analysis.TransactionID}
		}
		r.logger.Error("Failed to create fraud analysis",
			"transaction_id", analysis.TransactionID.String(),
			"error", err)
		return fmt.Errorf("failed to create fraud analysis: %w", err)
	}

	return nil
}

// GetByTransactionID retrieves the analysis for a transaction.
// Returns ErrAnalysisNotFound if the transaction was never analyzed.
func (r *AnalysisRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*fraud.Analysis, error) {
	collection := r.db.Collection(AnalysisCollectionName)

	filter := bson.M{"transaction_id": transactionID.String()}
	var doc analysisDocument
	err := collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fraud.ErrAnalysisNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get fraud analysis",
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get fraud analysis: %w", err)
	}

	return doc.toDomain()
}

// ExistsByTransactionID reports whether an analysis exists for the transaction
func (r *AnalysisRepository) ExistsByTransactionID(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	collection := r.db.Collection(AnalysisCollectionName)

	filter := bson.M{"transaction_id": transactionID.String()}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to check fraud analysis existence",
			"transaction_id", transactionID.String(),
			"error", err)
		return false, fmt.Errorf("failed to check fraud analysis existence: %w", err)
	}

	return count > 0, nil
}
