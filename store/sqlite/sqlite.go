/*
Package sqlite provides SQLite-backed implementations of the storage
interfaces.

PURPOSE:
  Two independent stores, each owning its own database file:
    LedgerStore   (economy.Store)  - accounts + operations   (economy.db)
    CooldownStore (cooldown.Store) - cooldowns               (cooldowns.db)
  No table is written by more than one store.

CONNECTION:
  Each store uses a single persistent connection (SetMaxOpenConns(1)), so
  the process is the only writer and ":memory:" databases are shared by
  every statement of the store. Foreign keys are on and the journal is WAL.

APPEND-ONLY ENFORCEMENT:
  LedgerStore has no UPDATE or DELETE statement on operations. The only
  UPDATE touches accounts.balance, inside the transaction that appends the
  matching operation.

USAGE:
  ledgerStore, err := sqlite.OpenLedger("./data/economy.db")
  if err != nil {
      log.Fatal(err)
  }
  defer ledgerStore.Close()

  ledger := economy.NewLedger(ledgerStore)

MIGRATION:
  Schema is created on Open*(). Wrapping an existing handle with
  NewLedgerStore / NewCooldownStore skips it.
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// open opens path with the pragmas shared by both stores and applies schema.
func open(path, schema string) (*sql.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Helper functions

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
