// Package store provides in-memory economy.Store implementations.
package store

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/warp/economy-engine/economy"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

var _ economy.Store = (*Memory)(nil)

type Memory struct {
	mu         sync.RWMutex
	accounts   map[economy.UserID]int64
	operations []economy.Operation // insertion order
	byID       map[economy.OperationID]int
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[economy.UserID]int64),
		byID:     make(map[economy.OperationID]int),
	}
}

func (m *Memory) GetAccount(ctx context.Context, userID economy.UserID) (economy.Account, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetAccount(ctx, userID)
}

func (m *Memory) GetAccounts(ctx context.Context, ids []economy.UserID) ([]economy.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetAccounts(ctx, ids)
}

func (m *Memory) GetOperation(ctx context.Context, id economy.OperationID) (economy.Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetOperation(ctx, id)
}

func (m *Memory) ListOperations(ctx context.Context, userID economy.UserID, limit int) ([]economy.Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().ListOperations(ctx, userID, limit)
}

func (m *Memory) SumDeltasSince(ctx context.Context, userID economy.UserID, since int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().SumDeltasSince(ctx, userID, since)
}

// WithTx executes fn within a transaction.
// Simulated with a snapshot + restore on error; fn runs under the write lock.
func (m *Memory) WithTx(ctx context.Context, fn func(economy.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(m.view()); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	accounts map[economy.UserID]int64
	opsLen   int
}

func (m *Memory) snapshot() memorySnapshot {
	return memorySnapshot{accounts: maps.Clone(m.accounts), opsLen: len(m.operations)}
}

func (m *Memory) restore(s memorySnapshot) {
	for _, op := range m.operations[s.opsLen:] {
		delete(m.byID, op.ID)
	}
	m.operations = m.operations[:s.opsLen]
	m.accounts = s.accounts
}

func (m *Memory) view() *memoryView {
	return &memoryView{parent: m}
}

// memoryView operates on the parent's state; callers hold the parent lock.
type memoryView struct {
	parent *Memory
}

func (v *memoryView) GetAccount(_ context.Context, userID economy.UserID) (economy.Account, bool, error) {
	balance, ok := v.parent.accounts[userID]
	if !ok {
		return economy.Account{}, false, nil
	}
	return economy.Account{UserID: userID, Balance: balance}, true, nil
}

func (v *memoryView) GetAccounts(_ context.Context, ids []economy.UserID) ([]economy.Account, error) {
	var result []economy.Account
	seen := make(map[economy.UserID]bool, len(ids))
	for _, id := range ids {
		balance, ok := v.parent.accounts[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, economy.Account{UserID: id, Balance: balance})
	}
	return result, nil
}

func (v *memoryView) GetOperation(_ context.Context, id economy.OperationID) (economy.Operation, error) {
	i, ok := v.parent.byID[id]
	if !ok {
		return economy.Operation{}, &economy.OperationNotFoundError{OperationID: id}
	}
	return v.parent.operations[i], nil
}

// ListOperations orders by timestamp descending, then by insertion descending.
func (v *memoryView) ListOperations(_ context.Context, userID economy.UserID, limit int) ([]economy.Operation, error) {
	var mine []economy.Operation
	for _, op := range v.parent.operations {
		if op.UserID == userID {
			mine = append(mine, op)
		}
	}

	// Insertion order is ascending, so a stable sort on descending timestamp
	// applied to the reversed slice keeps later inserts first among ties.
	result := make([]economy.Operation, 0, len(mine))
	for i := len(mine) - 1; i >= 0; i-- {
		result = append(result, mine[i])
	}
	sortNewestFirst(result)

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (v *memoryView) SumDeltasSince(_ context.Context, userID economy.UserID, since int64) (int64, error) {
	var sum int64
	for _, op := range v.parent.operations {
		if op.UserID == userID && op.Timestamp >= since {
			sum += op.Delta
		}
	}
	return sum, nil
}

func (v *memoryView) CreateAccount(_ context.Context, account economy.Account) error {
	if _, ok := v.parent.accounts[account.UserID]; !ok {
		v.parent.accounts[account.UserID] = account.Balance
	}
	return nil
}

func (v *memoryView) AppendOperation(_ context.Context, op economy.Operation) error {
	if _, ok := v.parent.byID[op.ID]; ok {
		return &economy.StorageConflictError{OperationID: op.ID}
	}
	v.parent.byID[op.ID] = len(v.parent.operations)
	v.parent.operations = append(v.parent.operations, op)
	return nil
}

func (v *memoryView) SetBalance(_ context.Context, userID economy.UserID, balance int64) error {
	if _, ok := v.parent.accounts[userID]; !ok {
		return fmt.Errorf("failed to update balance of %d: account missing", userID)
	}
	v.parent.accounts[userID] = balance
	return nil
}

func sortNewestFirst(ops []economy.Operation) {
	slices.SortStableFunc(ops, func(a, b economy.Operation) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})
}
