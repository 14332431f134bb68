/*
errors.go - Error types for the ledger

ERROR CATEGORIES:
  1. Client errors - invalid amounts, insufficient funds, foreign operations
  2. Lookup errors - unknown operation ids
  3. Storage errors - id collisions in the operation log (fatal)

USAGE:
  if errors.Is(err, economy.ErrInsufficientFunds) {
      var ife *economy.InsufficientFundsError
      errors.As(err, &ife) // ife.Balance, ife.Requested
  }

Errors are always returned to the caller. The ledger never retries and never
produces user-facing text; callers translate errors into messages.
*/
package economy

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAccount is returned when an operation does not belong to the
	// account it is applied to.
	ErrAccount = errors.New("account error")

	// ErrInsufficientFunds is returned when a withdrawal or reversal would
	// make a balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount is returned for non-positive deposits and withdrawals
	// and for negative assignments.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrOperationNotFound is returned when an operation id is absent from
	// the log, or from the account history being rolled back.
	ErrOperationNotFound = errors.New("operation not found")

	// ErrStorageConflict is returned when an operation id collides with an
	// existing one. The mutation is not applied.
	ErrStorageConflict = errors.New("storage conflict")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError provides details about a balance shortage.
type InsufficientFundsError struct {
	UserID    UserID
	Balance   int64
	Requested int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: account %d has %d, needs %d",
		e.UserID, e.Balance, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// InvalidAmountError reports a rejected amount.
type InvalidAmountError struct {
	Amount int64
	Reason string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %d: %s", e.Amount, e.Reason)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// AccountMismatchError reports an operation applied to the wrong account.
type AccountMismatchError struct {
	UserID      UserID
	OperationID OperationID
	Owner       UserID
}

func (e *AccountMismatchError) Error() string {
	return fmt.Sprintf("operation %s belongs to account %d, not %d",
		e.OperationID, e.Owner, e.UserID)
}

func (e *AccountMismatchError) Unwrap() error { return ErrAccount }

// OperationNotFoundError names the missing operation. UserID is set when the
// lookup was scoped to one account's history.
type OperationNotFoundError struct {
	OperationID OperationID
	UserID      UserID
}

func (e *OperationNotFoundError) Error() string {
	if e.UserID == 0 {
		return fmt.Sprintf("operation not found: %s", e.OperationID)
	}
	return fmt.Sprintf("operation not found in history of account %d: %s",
		e.UserID, e.OperationID)
}

func (e *OperationNotFoundError) Unwrap() error { return ErrOperationNotFound }

// StorageConflictError reports a duplicate operation id.
type StorageConflictError struct {
	OperationID OperationID
}

func (e *StorageConflictError) Error() string {
	return fmt.Sprintf("storage conflict: operation id %s already exists", e.OperationID)
}

func (e *StorageConflictError) Unwrap() error { return ErrStorageConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrAccount)
}

// IsNotFound returns true if the error indicates a missing operation.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOperationNotFound)
}
