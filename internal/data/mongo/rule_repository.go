package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/event-driven-wallet/internal/domain/fraud"
)

const (
	// RuleCollectionName is the name of the fraud rule collection in MongoDB
	RuleCollectionName = "fraud_rules"
)

// ruleDocument is the stored shape of a fraud rule
type ruleDocument struct {
	RuleCode          string               `bson:"rule_code"`
	RuleType          string               `bson:"rule_type"`
	Description       string               `bson:"description"`
	Threshold         primitive.Decimal128 `bson:"threshold"`
	ScoreImpact       int                  `bson:"score_impact"`
	TimeWindowMinutes int                  `bson:"time_window_minutes"`
	Active            bool                 `bson:"active"`
	CreatedAt         time.Time            `bson:"created_at"`
}

func toRuleDocument(rule *fraud.Rule) (*ruleDocument, error) {
	threshold, err := toDecimal128(rule.Threshold)
	if err != nil {
		return nil, err
	}
	return &ruleDocument{
		RuleCode:          rule.RuleCode,
		RuleType:          string(rule.RuleType),
		Description:       rule.Description,
		Threshold:         threshold,
		ScoreImpact:       rule.ScoreImpact,
		TimeWindowMinutes: rule.TimeWindowMinutes,
		Active:            rule.Active,
		CreatedAt:         rule.CreatedAt,
	}, nil
}

func (d *ruleDocument) toDomain() (*fraud.Rule, error) {
	threshold, err := fromDecimal128(d.Threshold)
	if err != nil {
		return nil, err
	}
	return &fraud.Rule{
		RuleCode:          d.RuleCode,
		RuleType:          fraud.RuleType(d.RuleType),
		Description:       d.Description,
		Threshold:         threshold,
		ScoreImpact:       d.ScoreImpact,
		TimeWindowMinutes: d.TimeWindowMinutes,
		Active:            d.Active,
		CreatedAt:         d.CreatedAt,
	}, nil
}

// RuleRepository implements the fraud.RuleRepository interface for MongoDB
type RuleRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewRuleRepository creates a new MongoDB fraud rule repository
func NewRuleRepository(logger *slog.Logger, db *mongo.Database) fraud.RuleRepository {
	return &RuleRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new fraud rule
func (r *RuleRepository) Create(ctx context.Context, rule *fraud.Rule) error {
	collection := r.db.Collection(RuleCollectionName)

	doc, err := toRuleDocument(rule)
	if err != nil {
		return err
	}

	_, err = collection.InsertOne(ctx, doc)
	if err != nil {
		// Another replica seeded the rule first.
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("Fraud rule already exists", "rule_code", rule.RuleCode)
			return nil
		}
		r.logger.Error("Failed to create fraud rule",
			"rule_code", rule.RuleCode,
			"error", err)
		return fmt.Errorf("failed to create fraud rule: %w", err)
	}

	return nil
}

// GetActive retrieves all active fraud rules
func (r *RuleRepository) GetActive(ctx context.Context) ([]*fraud.Rule, error) {
	collection := r.db.Collection(RuleCollectionName)

	filter := bson.M{"active": true}
	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to get active fraud rules", "error", err)
		return nil, fmt.Errorf("failed to get active fraud rules: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*ruleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode fraud rules", "error", err)
		return nil, fmt.Errorf("failed to decode fraud rules: %w", err)
	}

	rules := make([]*fraud.Rule, 0, len(docs))
	for _, doc := range docs {
		rule, err := doc.toDomain()
		if err != nil {
			r.logger.Error("Failed to convert fraud rule", "rule_code", doc.RuleCode, "error", err)
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

// ExistsByRuleCode reports whether a rule with the code exists
func (r *RuleRepository) ExistsByRuleCode(ctx context.Context, ruleCode string) (bool, error) {
	collection := r.db.Collection(RuleCollectionName)

	filter := bson.M{"rule_code": ruleCode}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to check fraud rule existence", "rule_code", ruleCode, "error", err)
		return false, fmt.Errorf("failed to check fraud rule existence: %w", err)
	}

	return count > 0, nil
}

// Count counts all stored fraud rules
func (r *RuleRepository) Count(ctx context.Context) (int64, error) {
	collection := r.db.Collection(RuleCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		r.logger.Error("Failed to count fraud rules", "error", err)
		return 0, fmt.Errorf("failed to count fraud rules: %w", err)
	}

	return count, nil
}
