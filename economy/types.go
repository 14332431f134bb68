/*
Package economy provides the account ledger.

PURPOSE:
  Tracks one integer balance per user and records every change to it in an
  append-only operation log. The log is the source of truth; the balance
  stored on an account is a cached projection of it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account:   A user's current balance
  - Operation: An immutable, signed balance change with a description
  - UserID / OperationID: Type-safe identifiers

INVARIANT:
  For every account, Balance == StartingBalance + sum(Delta) over all of the
  account's operations. Only Ledger writes balances, and it always writes the
  operation and the new balance in the same storage transaction.

SEE ALSO:
  - ledger.go:   Mutations (deposit, withdraw, assign, transfer)
  - rollback.go: Reverse and rollback
  - id.go:       Operation identifier scheme
  - store.go:    Persistence contract
*/
package economy

import "time"

// DefaultStartingBalance is granted to every account on first access.
const DefaultStartingBalance int64 = 250

// UserID identifies an account owner.
type UserID int64

// OperationID identifies an operation. See GenerateID.
type OperationID string

// Account is a snapshot of a user's balance.
type Account struct {
	UserID  UserID
	Balance int64
}

// Operation is a single balance change. Immutable once persisted.
type Operation struct {
	ID          OperationID
	UserID      UserID
	Delta       int64
	Description string
	Timestamp   int64 // unix seconds
}

// Time returns the operation timestamp as a time.Time.
func (op Operation) Time() time.Time {
	return time.Unix(op.Timestamp, 0).UTC()
}

// IsCredit reports whether the operation increased the balance.
func (op Operation) IsCredit() bool {
	return op.Delta > 0
}

// Transfer is the pair of operations written by Ledger.Transfer.
type Transfer struct {
	Debit  Operation
	Credit Operation
}

// Audit compares an account's stored balance with the balance replayed from
// its operation log.
type Audit struct {
	UserID   UserID
	Stored   int64
	Replayed int64
}

// Consistent reports whether the stored balance matches the log.
func (a Audit) Consistent() bool {
	return a.Stored == a.Replayed
}

// Drift is Stored - Replayed.
func (a Audit) Drift() int64 {
	return a.Stored - a.Replayed
}
