package ledgerbook

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side of a ledger entry.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// Entry is one half of a double-entry posting. Append-only, never mutated.
type Entry struct {
	ID                   uuid.UUID        `json:"id"`
	TransactionID        uuid.UUID        `json:"transaction_id"`
	JournalID            uuid.UUID        `json:"journal_id"`
	AccountID            uuid.UUID        `json:"account_id"`
	Amount               decimal.Decimal  `json:"amount"`
	Side                 Side             `json:"side"`
	Currency             string           `json:"currency"`
	Description          string           `json:"description,omitempty"`
	ReportedBalanceAfter *decimal.Decimal `json:"reported_balance_after,omitempty"`
	RecordedAt           time.Time        `json:"recorded_at"`
}

// NewEntry creates one side of a posting.
func NewEntry(transactionID, journalID, accountID uuid.UUID, amount decimal.Decimal, side Side, currency, description string) *Entry {
	return &Entry{
		ID:            uuid.New(),
		TransactionID: transactionID,
		JournalID:     journalID,
		AccountID:     accountID,
		Amount:        amount,
		Side:          side,
		Currency:      currency,
		Description:   description,
		RecordedAt:    time.Now().UTC(),
	}
}

// WithReportedBalance attaches the balance the originating service reported
// after the mutation. Only the user-side entry carries it.
func (e *Entry) WithReportedBalance(balanceAfter decimal.Decimal) *Entry {
	b := balanceAfter
	e.ReportedBalanceAfter = &b
	return e
}
