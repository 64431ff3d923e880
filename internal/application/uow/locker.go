package uow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Locker serialises work on a key across goroutines or processes. Acquire
// waits a bounded time and fails with shared.ErrLockTimeout after that.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// DocumentLockKey is the locker key of a document
func DocumentLockKey(id uuid.UUID) string {
	return fmt.Sprintf("document:%s", id)
}

// PaymentLockKey is the locker key of a payment
func PaymentLockKey(id uuid.UUID) string {
	return fmt.Sprintf("payment:%s", id)
}

// RegisterLockKey is the locker key of a cash register session
func RegisterLockKey(id uuid.UUID) string {
	return fmt.Sprintf("cash_register:%s", id)
}
