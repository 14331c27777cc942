// Package seeder provisions the system-side ledger accounts at startup.
// The poster treats a missing system account as a fatal configuration error,
// so seeding must run before any event is consumed.
package seeder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/event-driven-wallet/internal/domain/ledgerbook"
)

var systemAccountTypes = []ledgerbook.AccountType{
	ledgerbook.AccountTypeSystemBank,
	ledgerbook.AccountTypeSystemFees,
	ledgerbook.AccountTypeSystemSuspense,
}

// SystemAccountSeeder creates the institutional accounts for each supported
// currency. Seeding is idempotent: existing accounts are left untouched.
type SystemAccountSeeder struct {
	accounts   ledgerbook.AccountRepository
	logger     *slog.Logger
	currencies []string
}

func NewSystemAccountSeeder(logger *slog.Logger, accounts ledgerbook.AccountRepository, currencies []string) *SystemAccountSeeder {
	return &SystemAccountSeeder{
		accounts:   accounts,
		logger:     logger,
		currencies: currencies,
	}
}

// Seed creates any missing system accounts.
func (s *SystemAccountSeeder) Seed(ctx context.Context) error {
	for _, currency := range s.currencies {
		for _, accountType := range systemAccountTypes {
			account := ledgerbook.NewSystemAccount(accountType, currency)

			exists, err := s.accounts.ExistsByAccountNumber(ctx, account.AccountNumber)
			if err != nil {
				return fmt.Errorf("failed to check system account %s: %w", account.AccountNumber, err)
			}
			if exists {
				continue
			}

			if err := s.accounts.Create(ctx, account); err != nil {
				return fmt.Errorf("failed to seed system account %s: %w", account.AccountNumber, err)
			}
			s.logger.Info("Seeded system ledger account",
				"account_number", account.AccountNumber,
				"account_type", accountType,
				"currency", currency,
			)
		}
	}
	return nil
}
