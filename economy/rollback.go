/*
rollback.go - Compensating operations

CORRECTIONS:
  History is never edited. Reverse appends a new operation with the opposite
  delta of the original; both stay in the log. Rollback reverses every
  operation from the newest down to and including a target, newest first,
  which returns the balance to its value just before the target was applied.

  A rollback runs in one storage transaction under the account lock: either
  every compensating operation is recorded or none is.
*/
package economy

import (
	"context"
	"fmt"
	"log"
)

// ReversalDescription is the description recorded on the compensating
// operation for id.
func ReversalDescription(id OperationID) string {
	return fmt.Sprintf("reversal of operation %s", id)
}

// Reverse appends an operation cancelling the operation id on the user's
// account. It fails with ErrAccount if the operation belongs to another
// account and with ErrInsufficientFunds if the balance would go negative.
func (l *Ledger) Reverse(ctx context.Context, userID UserID, id OperationID) (Operation, error) {
	return l.mutate(ctx, userID, func(ctx context.Context, tx Tx, account *Account) (Operation, error) {
		target, err := l.ownedOperation(ctx, tx, userID, id)
		if err != nil {
			return Operation{}, err
		}
		return l.reverse(ctx, tx, account, target)
	})
}

// Rollback reverses every operation of the user's account from the most
// recent down to and including the target, and returns the compensating
// operations in the order they were written.
func (l *Ledger) Rollback(ctx context.Context, userID UserID, target OperationID) ([]Operation, error) {
	unlock := l.locks.lock(userID)
	defer unlock()

	var compensations []Operation
	err := l.Store.WithTx(ctx, func(tx Tx) error {
		compensations = nil

		if _, err := l.ownedOperation(ctx, tx, userID, target); err != nil {
			return err
		}
		account, err := l.loadOrCreate(ctx, tx, userID)
		if err != nil {
			return err
		}

		history, err := tx.ListOperations(ctx, userID, 0)
		if err != nil {
			return err
		}
		var collected []Operation
		found := false
		for _, op := range history {
			collected = append(collected, op)
			if op.ID == target {
				found = true
				break
			}
		}
		if !found {
			return &OperationNotFoundError{OperationID: target, UserID: userID}
		}

		for _, op := range collected {
			compensation, err := l.reverse(ctx, tx, &account, op)
			if err != nil {
				return fmt.Errorf("rollback to %s: reverse %s: %w", target, op.ID, err)
			}
			compensations = append(compensations, compensation)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[Ledger] Rolled back account %d to %s (%d reversals)", userID, target, len(compensations))
	return compensations, nil
}

func (l *Ledger) ownedOperation(ctx context.Context, tx Tx, userID UserID, id OperationID) (Operation, error) {
	op, err := tx.GetOperation(ctx, id)
	if err != nil {
		return Operation{}, err
	}
	if op.UserID != userID {
		return Operation{}, &AccountMismatchError{UserID: userID, OperationID: id, Owner: op.UserID}
	}
	return op, nil
}

func (l *Ledger) reverse(ctx context.Context, tx Tx, account *Account, op Operation) (Operation, error) {
	if op.Delta < 0 {
		return l.credit(ctx, tx, account, -op.Delta, ReversalDescription(op.ID))
	}
	newBalance := account.Balance - op.Delta
	if newBalance < 0 {
		return Operation{}, &InsufficientFundsError{
			UserID:    account.UserID,
			Balance:   account.Balance,
			Requested: op.Delta,
		}
	}
	return l.apply(ctx, tx, account, newBalance, ReversalDescription(op.ID))
}
