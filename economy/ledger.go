/*
ledger.go - Balance mutation and account queries

PURPOSE:
  Ledger is the only writer of balances. Every mutation:
    1. takes the per-account lock
    2. opens a storage transaction
    3. reads the balance, computes the new one
    4. appends the operation and writes the balance
    5. commits
  so two concurrent mutations of one account can never interleave, and an
  operation is never recorded without its balance update (or vice versa).

EXAMPLE FLOW (starting balance 250):
  Deposit(100, "x")   -> +100, balance 350
  Withdraw(500, "y")  -> ErrInsufficientFunds, balance 350, log unchanged
  Withdraw(50, "z")   -> -50, balance 300
  Rollback(<deposit>) -> +50, -100, balance 250

SEE ALSO:
  - rollback.go: Reverse and Rollback
  - store.go:    Store / Tx contract
*/
package economy

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"math"
	"slices"
	"time"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger owns account balances and the operation log.
type Ledger struct {
	Store           Store
	StartingBalance int64
	Now             func() time.Time

	locks accountLocks
}

// NewLedger creates a ledger over store with DefaultStartingBalance.
func NewLedger(store Store) *Ledger {
	return &Ledger{
		Store:           store,
		StartingBalance: DefaultStartingBalance,
		Now:             func() time.Time { return time.Now().UTC() },
	}
}

func (l *Ledger) now() time.Time {
	if l.Now == nil {
		return time.Now().UTC()
	}
	return l.Now()
}

// Account returns the user's account, creating it with the starting balance
// if it does not exist yet.
func (l *Ledger) Account(ctx context.Context, userID UserID) (Account, error) {
	unlock := l.locks.lock(userID)
	defer unlock()

	var account Account
	err := l.Store.WithTx(ctx, func(tx Tx) error {
		var err error
		account, err = l.loadOrCreate(ctx, tx, userID)
		return err
	})
	return account, err
}

// Accounts returns the accounts of all ids, creating missing ones.
func (l *Ledger) Accounts(ctx context.Context, ids []UserID) ([]Account, error) {
	accounts := make([]Account, 0, len(ids))
	for _, id := range ids {
		account, err := l.Account(ctx, id)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (l *Ledger) loadOrCreate(ctx context.Context, tx Tx, userID UserID) (Account, error) {
	account, ok, err := tx.GetAccount(ctx, userID)
	if err != nil {
		return Account{}, err
	}
	if ok {
		return account, nil
	}
	account = Account{UserID: userID, Balance: l.StartingBalance}
	if err := tx.CreateAccount(ctx, account); err != nil {
		return Account{}, err
	}
	return account, nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Deposit adds amount to the balance. amount must be positive.
func (l *Ledger) Deposit(ctx context.Context, userID UserID, amount int64, description string) (Operation, error) {
	if amount <= 0 {
		return Operation{}, &InvalidAmountError{Amount: amount, Reason: "deposit must be positive"}
	}
	return l.mutate(ctx, userID, func(ctx context.Context, tx Tx, account *Account) (Operation, error) {
		return l.credit(ctx, tx, account, amount, description)
	})
}

// credit adds a positive amount, refusing balances past math.MaxInt64.
func (l *Ledger) credit(ctx context.Context, tx Tx, account *Account, amount int64, description string) (Operation, error) {
	if amount > math.MaxInt64-account.Balance {
		return Operation{}, &InvalidAmountError{Amount: amount, Reason: "balance would overflow"}
	}
	return l.apply(ctx, tx, account, account.Balance+amount, description)
}

// Withdraw removes |amount| from the balance.
func (l *Ledger) Withdraw(ctx context.Context, userID UserID, amount int64, description string) (Operation, error) {
	if amount < 0 {
		amount = -amount
	}
	if amount == 0 {
		return Operation{}, &InvalidAmountError{Amount: amount, Reason: "withdrawal must be non-zero"}
	}
	return l.mutate(ctx, userID, func(ctx context.Context, tx Tx, account *Account) (Operation, error) {
		return l.withdraw(ctx, tx, account, amount, description)
	})
}

func (l *Ledger) withdraw(ctx context.Context, tx Tx, account *Account, amount int64, description string) (Operation, error) {
	if account.Balance < amount {
		return Operation{}, &InsufficientFundsError{
			UserID:    account.UserID,
			Balance:   account.Balance,
			Requested: amount,
		}
	}
	return l.apply(ctx, tx, account, account.Balance-amount, description)
}

// Assign sets the balance to value. value must not be negative. When the
// balance already equals value nothing is recorded and ok is false.
func (l *Ledger) Assign(ctx context.Context, userID UserID, value int64, description string) (op Operation, ok bool, err error) {
	if value < 0 {
		return Operation{}, false, &InvalidAmountError{Amount: value, Reason: "assigned balance must not be negative"}
	}
	op, err = l.mutate(ctx, userID, func(ctx context.Context, tx Tx, account *Account) (Operation, error) {
		if account.Balance == value {
			return Operation{}, nil
		}
		return l.apply(ctx, tx, account, value, description)
	})
	return op, err == nil && op.ID != "", err
}

// Transfer moves amount from one account to another in one transaction.
// Both account locks are held for the duration.
func (l *Ledger) Transfer(ctx context.Context, from, to UserID, amount int64, description string) (Transfer, error) {
	if amount <= 0 {
		return Transfer{}, &InvalidAmountError{Amount: amount, Reason: "transfer must be positive"}
	}
	if from == to {
		return Transfer{}, fmt.Errorf("%w: cannot transfer from account %d to itself", ErrAccount, from)
	}

	unlock := l.locks.lock(from, to)
	defer unlock()

	var result Transfer
	err := l.Store.WithTx(ctx, func(tx Tx) error {
		src, err := l.loadOrCreate(ctx, tx, from)
		if err != nil {
			return err
		}
		dst, err := l.loadOrCreate(ctx, tx, to)
		if err != nil {
			return err
		}
		if result.Debit, err = l.withdraw(ctx, tx, &src, amount, description); err != nil {
			return err
		}
		result.Credit, err = l.credit(ctx, tx, &dst, amount, description)
		return err
	})
	if err != nil {
		return Transfer{}, err
	}
	return result, nil
}

type mutation func(ctx context.Context, tx Tx, account *Account) (Operation, error)

// mutate runs fn under the account lock inside one storage transaction.
func (l *Ledger) mutate(ctx context.Context, userID UserID, fn mutation) (Operation, error) {
	unlock := l.locks.lock(userID)
	defer unlock()

	var op Operation
	err := l.Store.WithTx(ctx, func(tx Tx) error {
		account, err := l.loadOrCreate(ctx, tx, userID)
		if err != nil {
			return err
		}
		op, err = fn(ctx, tx, &account)
		return err
	})
	if err != nil {
		return Operation{}, err
	}
	return op, nil
}

// apply records the operation that moves account to newBalance and writes
// the balance. account is updated in place.
func (l *Ledger) apply(ctx context.Context, tx Tx, account *Account, newBalance int64, description string) (Operation, error) {
	delta := newBalance - account.Balance
	if delta == 0 {
		return Operation{}, nil
	}

	ts := l.now().Unix()
	op := Operation{
		ID:          GenerateID(int64(account.UserID), newBalance, description, ts),
		UserID:      account.UserID,
		Delta:       delta,
		Description: description,
		Timestamp:   ts,
	}
	if err := tx.AppendOperation(ctx, op); err != nil {
		return Operation{}, err
	}
	if err := tx.SetBalance(ctx, account.UserID, newBalance); err != nil {
		return Operation{}, err
	}
	account.Balance = newBalance
	return op, nil
}

// =============================================================================
// QUERIES - Read-only
// =============================================================================

// Operation looks up an operation by id.
func (l *Ledger) Operation(ctx context.Context, id OperationID) (Operation, error) {
	return l.Store.GetOperation(ctx, id)
}

// RecentOperations returns the user's last limit operations, newest first.
func (l *Ledger) RecentOperations(ctx context.Context, userID UserID, limit int) ([]Operation, error) {
	if limit <= 0 {
		return []Operation{}, nil
	}
	return l.Store.ListOperations(ctx, userID, limit)
}

// VariationSince returns the sum of the user's deltas at or after since.
func (l *Ledger) VariationSince(ctx context.Context, userID UserID, since time.Time) (int64, error) {
	return l.Store.SumDeltasSince(ctx, userID, since.Unix())
}

// RankInGroup returns the user's 1-based rank by descending balance among
// candidates. ok is false when userID is not a candidate. Candidates without
// an account rank with the starting balance; ties keep candidate order.
func (l *Ledger) RankInGroup(ctx context.Context, userID UserID, candidates []UserID) (rank int, ok bool, err error) {
	if !slices.Contains(candidates, userID) {
		return 0, false, nil
	}

	existing, err := l.Store.GetAccounts(ctx, candidates)
	if err != nil {
		return 0, false, err
	}
	balances := make(map[UserID]int64, len(existing))
	for _, a := range existing {
		balances[a.UserID] = a.Balance
	}

	seen := make(map[UserID]bool, len(candidates))
	group := make([]Account, 0, len(candidates))
	for _, id := range candidates {
		if seen[id] {
			continue
		}
		seen[id] = true
		balance, found := balances[id]
		if !found {
			balance = l.StartingBalance
		}
		group = append(group, Account{UserID: id, Balance: balance})
	}

	slices.SortStableFunc(group, func(a, b Account) int {
		return cmp.Compare(b.Balance, a.Balance)
	})
	for i, a := range group {
		if a.UserID == userID {
			return i + 1, true, nil
		}
	}
	return 0, false, nil
}

// Verify replays the user's operation log and compares it with the stored
// balance.
func (l *Ledger) Verify(ctx context.Context, userID UserID) (Audit, error) {
	account, ok, err := l.Store.GetAccount(ctx, userID)
	if err != nil {
		return Audit{}, err
	}
	if !ok {
		account = Account{UserID: userID, Balance: l.StartingBalance}
	}
	sum, err := l.Store.SumDeltasSince(ctx, userID, math.MinInt64)
	if err != nil {
		return Audit{}, err
	}
	audit := Audit{
		UserID:   userID,
		Stored:   account.Balance,
		Replayed: l.StartingBalance + sum,
	}
	if !audit.Consistent() {
		log.Printf("[Ledger] Balance drift on account %d: stored %d, replayed %d", userID, audit.Stored, audit.Replayed)
	}
	return audit, nil
}
