package blocklist

import (
	"context"

	"github.com/google/uuid"
)

// Repository manages the blocked-user projection
type Repository interface {
	Create(ctx context.Context, blocked *BlockedUser) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*BlockedUser, error)
	ExistsByTriggeringTransactionID(ctx context.Context, transactionID uuid.UUID) (bool, error)
}

// ErrUserBlocked rejects money movement for a blocked user
type ErrUserBlocked struct {
	UserID uuid.UUID
	Reason string
}

func (e ErrUserBlocked) Error() string {
	return "user " + e.UserID.String() + " is blocked: " + e.Reason
}

func (e ErrUserBlocked) Is(target error) bool {
	t, ok := target.(ErrUserBlocked)
	if !ok {
		return false
	}
	if t.UserID == uuid.Nil {
		return true
	}
	return e.UserID == t.UserID
}
