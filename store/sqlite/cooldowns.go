package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp/economy-engine/cooldown"
)

const cooldownSchema = `
	CREATE TABLE IF NOT EXISTS cooldowns (
		bucket_key TEXT NOT NULL,
		cooldown_name TEXT NOT NULL,
		expires_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		metadata TEXT,
		PRIMARY KEY (bucket_key, cooldown_name)
	);

	-- Expiry sweeps
	CREATE INDEX IF NOT EXISTS idx_expires_at
		ON cooldowns(expires_at);

	-- Per-entity scans
	CREATE INDEX IF NOT EXISTS idx_bucket_key
		ON cooldowns(bucket_key);
`

const cooldownColumns = "bucket_key, cooldown_name, expires_at, created_at, metadata"

var _ cooldown.Store = (*CooldownStore)(nil)

// CooldownStore implements cooldown.Store.
type CooldownStore struct {
	db *sql.DB
}

// OpenCooldowns opens (creating if needed) the cooldown database at path.
func OpenCooldowns(path string) (*CooldownStore, error) {
	db, err := open(path, cooldownSchema)
	if err != nil {
		return nil, err
	}
	return NewCooldownStore(db), nil
}

// NewCooldownStore wraps an already migrated handle.
func NewCooldownStore(db *sql.DB) *CooldownStore {
	return &CooldownStore{db: db}
}

// Close closes the database connection.
func (s *CooldownStore) Close() error {
	return s.db.Close()
}

func (s *CooldownStore) Upsert(ctx context.Context, e cooldown.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cooldowns (`+cooldownColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(bucket_key, cooldown_name) DO UPDATE SET
			expires_at = excluded.expires_at,
			created_at = excluded.created_at,
			metadata = excluded.metadata`,
		e.BucketKey, e.Name, e.ExpiresAt, e.CreatedAt, nullString(e.Metadata),
	)
	if err != nil {
		return fmt.Errorf("failed to save cooldown: %w", err)
	}
	return nil
}

func (s *CooldownStore) Get(ctx context.Context, bucketKey, name string) (cooldown.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+cooldownColumns+" FROM cooldowns WHERE bucket_key = ? AND cooldown_name = ?",
		bucketKey, name,
	)
	e, err := scanCooldown(row)
	if errors.Is(err, sql.ErrNoRows) {
		return cooldown.Entry{}, cooldown.ErrCooldownNotFound
	}
	if err != nil {
		return cooldown.Entry{}, fmt.Errorf("failed to load cooldown: %w", err)
	}
	return e, nil
}

func (s *CooldownStore) SetExpiration(ctx context.Context, bucketKey, name string, expiresAt int64) (bool, error) {
	return s.exec(ctx,
		"UPDATE cooldowns SET expires_at = ? WHERE bucket_key = ? AND cooldown_name = ?",
		expiresAt, bucketKey, name,
	)
}

func (s *CooldownStore) Delete(ctx context.Context, bucketKey, name string) (bool, error) {
	return s.exec(ctx,
		"DELETE FROM cooldowns WHERE bucket_key = ? AND cooldown_name = ?",
		bucketKey, name,
	)
}

func (s *CooldownStore) DeleteIfExpired(ctx context.Context, bucketKey, name string, now int64) (bool, error) {
	return s.exec(ctx,
		"DELETE FROM cooldowns WHERE bucket_key = ? AND cooldown_name = ? AND expires_at <= ?",
		bucketKey, name, now,
	)
}

func (s *CooldownStore) DeleteBucket(ctx context.Context, bucketKey string) (int, error) {
	return s.execCount(ctx, "DELETE FROM cooldowns WHERE bucket_key = ?", bucketKey)
}

func (s *CooldownStore) DeleteExpired(ctx context.Context, now int64) (int, error) {
	return s.execCount(ctx, "DELETE FROM cooldowns WHERE expires_at <= ?", now)
}

func (s *CooldownStore) ListBucket(ctx context.Context, bucketKey string) ([]cooldown.Entry, error) {
	return s.query(ctx,
		"SELECT "+cooldownColumns+" FROM cooldowns WHERE bucket_key = ? ORDER BY expires_at ASC, cooldown_name ASC",
		bucketKey,
	)
}

func (s *CooldownStore) ListByName(ctx context.Context, name string) ([]cooldown.Entry, error) {
	return s.query(ctx,
		"SELECT "+cooldownColumns+" FROM cooldowns WHERE cooldown_name = ? ORDER BY expires_at ASC, bucket_key ASC",
		name,
	)
}

func (s *CooldownStore) ActiveBucketKeys(ctx context.Context, now int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT bucket_key FROM cooldowns WHERE expires_at > ? ORDER BY bucket_key",
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query buckets: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan bucket key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *CooldownStore) query(ctx context.Context, query string, args ...any) ([]cooldown.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cooldowns: %w", err)
	}
	defer rows.Close()

	var entries []cooldown.Entry
	for rows.Next() {
		e, err := scanCooldown(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cooldown: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *CooldownStore) exec(ctx context.Context, query string, args ...any) (bool, error) {
	n, err := s.execCount(ctx, query, args...)
	return n > 0, err
}

func (s *CooldownStore) execCount(ctx context.Context, query string, args ...any) (int, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to write cooldowns: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to write cooldowns: %w", err)
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCooldown(row scanner) (cooldown.Entry, error) {
	var (
		e        cooldown.Entry
		metadata sql.NullString
	)
	if err := row.Scan(&e.BucketKey, &e.Name, &e.ExpiresAt, &e.CreatedAt, &metadata); err != nil {
		return cooldown.Entry{}, err
	}
	e.Metadata = stringPtr(metadata)
	return e, nil
}
