// Package mongo provides MongoDB implementations of the fraud domain
// repositories. Monetary amounts are stored as Decimal128 so aggregation
// pipelines can average and compare them without precision loss.
package mongo

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	d128, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("failed to convert amount to Decimal128: %w", err)
	}
	return d128, nil
}

func fromDecimal128(d128 primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(d128.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to convert Decimal128 to amount: %w", err)
	}
	return d, nil
}
