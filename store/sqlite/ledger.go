package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp/economy-engine/economy"
)

var ledgerSchema = fmt.Sprintf(`
	-- Accounts (cached balance projection). The column default is not
	-- authoritative: rows are always inserted with the ledger's configured
	-- starting balance.
	CREATE TABLE IF NOT EXISTS accounts (
		user_id INTEGER PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT %d
	);

	-- Operations (append-only log)
	CREATE TABLE IF NOT EXISTS operations (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		delta INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		timestamp INTEGER NOT NULL,
		FOREIGN KEY(user_id) REFERENCES accounts(user_id)
	);

	-- History scans (hot path): newest first per user
	CREATE INDEX IF NOT EXISTS idx_operations_user_timestamp
		ON operations(user_id, timestamp DESC);
`, economy.DefaultStartingBalance)

var _ economy.Store = (*LedgerStore)(nil)

// LedgerStore implements economy.Store.
type LedgerStore struct {
	ledgerQueries
	db *sql.DB
}

// OpenLedger opens (creating if needed) the ledger database at path.
// Use ":memory:" for an in-memory database.
func OpenLedger(path string) (*LedgerStore, error) {
	db, err := open(path, ledgerSchema)
	if err != nil {
		return nil, err
	}
	return NewLedgerStore(db), nil
}

// NewLedgerStore wraps an already migrated handle.
func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{ledgerQueries: ledgerQueries{q: db}, db: db}
}

// Close closes the database connection.
func (s *LedgerStore) Close() error {
	return s.db.Close()
}

// WithTx executes fn within a database transaction.
func (s *LedgerStore) WithTx(ctx context.Context, fn func(economy.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&ledgerTx{ledgerQueries{q: sqlTx}}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type ledgerTx struct {
	ledgerQueries
}

// ledgerQueries runs against either the pool or an open transaction.
type ledgerQueries struct {
	q querier
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (l ledgerQueries) GetAccount(ctx context.Context, userID economy.UserID) (economy.Account, bool, error) {
	account := economy.Account{UserID: userID}
	err := l.q.QueryRowContext(ctx,
		"SELECT balance FROM accounts WHERE user_id = ?", userID,
	).Scan(&account.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return economy.Account{}, false, nil
	}
	if err != nil {
		return economy.Account{}, false, fmt.Errorf("failed to load account %d: %w", userID, err)
	}
	return account, true, nil
}

func (l ledgerQueries) GetAccounts(ctx context.Context, ids []economy.UserID) ([]economy.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := l.q.QueryContext(ctx,
		"SELECT user_id, balance FROM accounts WHERE user_id IN ("+placeholders(len(ids))+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []economy.Account
	for rows.Next() {
		var a economy.Account
		if err := rows.Scan(&a.UserID, &a.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (t *ledgerTx) CreateAccount(ctx context.Context, account economy.Account) error {
	_, err := t.q.ExecContext(ctx,
		"INSERT INTO accounts (user_id, balance) VALUES (?, ?) ON CONFLICT(user_id) DO NOTHING",
		account.UserID, account.Balance,
	)
	if err != nil {
		return fmt.Errorf("failed to create account %d: %w", account.UserID, err)
	}
	return nil
}

func (t *ledgerTx) SetBalance(ctx context.Context, userID economy.UserID, balance int64) error {
	res, err := t.q.ExecContext(ctx,
		"UPDATE accounts SET balance = ? WHERE user_id = ?", balance, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update balance of %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update balance of %d: %w", userID, err)
	}
	if n != 1 {
		return fmt.Errorf("failed to update balance of %d: account row missing", userID)
	}
	return nil
}

// =============================================================================
// OPERATIONS (append-only)
// =============================================================================

func (t *ledgerTx) AppendOperation(ctx context.Context, op economy.Operation) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO operations (id, user_id, delta, description, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		op.ID, op.UserID, op.Delta, op.Description, op.Timestamp,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &economy.StorageConflictError{OperationID: op.ID}
		}
		return fmt.Errorf("failed to append operation: %w", err)
	}
	return nil
}

const operationColumns = "id, user_id, delta, description, timestamp"

func (l ledgerQueries) GetOperation(ctx context.Context, id economy.OperationID) (economy.Operation, error) {
	var op economy.Operation
	err := l.q.QueryRowContext(ctx,
		"SELECT "+operationColumns+" FROM operations WHERE id = ?", id,
	).Scan(&op.ID, &op.UserID, &op.Delta, &op.Description, &op.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return economy.Operation{}, &economy.OperationNotFoundError{OperationID: id}
	}
	if err != nil {
		return economy.Operation{}, fmt.Errorf("failed to load operation %s: %w", id, err)
	}
	return op, nil
}

// ListOperations breaks timestamp ties with rowid, i.e. insertion order.
func (l ledgerQueries) ListOperations(ctx context.Context, userID economy.UserID, limit int) ([]economy.Operation, error) {
	query := "SELECT " + operationColumns + " FROM operations WHERE user_id = ? ORDER BY timestamp DESC, rowid DESC"
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	operations := []economy.Operation{}
	for rows.Next() {
		var op economy.Operation
		if err := rows.Scan(&op.ID, &op.UserID, &op.Delta, &op.Description, &op.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		operations = append(operations, op)
	}
	return operations, rows.Err()
}

func (l ledgerQueries) SumDeltasSince(ctx context.Context, userID economy.UserID, since int64) (int64, error) {
	var sum int64
	err := l.q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(delta), 0) FROM operations WHERE user_id = ? AND timestamp >= ?",
		userID, since,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum operations: %w", err)
	}
	return sum, nil
}
