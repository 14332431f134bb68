/*
store.go - Persistence contract for accounts and operations

APPEND-ONLY CONTRACT:
  Operations are only ever appended. There is no method to update or delete
  an operation; corrections are compensating operations (see rollback.go).

ATOMICITY:
  Every balance mutation runs inside WithTx: the balance read, the operation
  append and the balance write commit together or not at all.

IMPLEMENTATIONS:
  - store/sqlite:      Production SQLite store (economy.db)
  - economy/store:     In-memory store for tests
*/
package economy

import "context"

// Reader is the read side of the store.
type Reader interface {
	// GetAccount returns the account and whether it exists.
	GetAccount(ctx context.Context, userID UserID) (Account, bool, error)

	// GetAccounts returns the existing accounts among ids, in no particular order.
	GetAccounts(ctx context.Context, ids []UserID) ([]Account, error)

	// GetOperation returns ErrOperationNotFound if id is unknown.
	GetOperation(ctx context.Context, id OperationID) (Operation, error)

	// ListOperations returns the user's operations newest first. Operations
	// sharing a timestamp are ordered by insertion. limit <= 0 means all.
	ListOperations(ctx context.Context, userID UserID, limit int) ([]Operation, error)

	// SumDeltasSince sums the user's deltas with Timestamp >= since.
	SumDeltasSince(ctx context.Context, userID UserID, since int64) (int64, error)
}

// Tx is a storage transaction. Writes become visible on commit.
type Tx interface {
	Reader

	// CreateAccount inserts a new account row.
	CreateAccount(ctx context.Context, account Account) error

	// AppendOperation inserts op. A duplicate id yields ErrStorageConflict.
	AppendOperation(ctx context.Context, op Operation) error

	// SetBalance overwrites the cached balance of an existing account.
	SetBalance(ctx context.Context, userID UserID, balance int64) error
}

// Store persists accounts and the operation log.
type Store interface {
	Reader

	// WithTx runs fn in a transaction. If fn returns an error nothing is
	// committed.
	WithTx(ctx context.Context, fn func(Tx) error) error
}
