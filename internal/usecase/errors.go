package usecase

import (
	"errors"
	"fmt"

	"github.com/orderappu/recon-api/internal/entity"
)

var (
	// ErrDuplicate means this idempotency key already holds an in-flight lock.
	ErrDuplicate = errors.New("duplicate idempotency key")

	// ErrCreditCheckFailed aborts a submit before any mutation when the
	// ceiling could not be fetched (a non-404 failure).
	ErrCreditCheckFailed = errors.New("credit limit check failed")

	// ErrOrderStateFailed aborts a submit when the current server-side order
	// state could not be read for compensation bookkeeping.
	ErrOrderStateFailed = errors.New("order state fetch failed")

	// ErrPriorRunFailed answers a replayed idempotency key whose original run
	// ended in failure; the saga id points at the journaled detail.
	ErrPriorRunFailed = errors.New("prior run for this idempotency key failed")
)

// CreditLimitExceededError is the gate rejection. The excess is reported to
// the caller exactly as newTotal - ceiling.
type CreditLimitExceededError struct {
	Limit         entity.CreditLimit
	NewTotalCents int64
}

func (e *CreditLimitExceededError) Error() string {
	return fmt.Sprintf("credit limit exceeded by %s", entity.CentsToWire(e.ExcessCents()))
}

func (e *CreditLimitExceededError) ExcessCents() int64 {
	return e.Limit.Excess(e.NewTotalCents)
}
