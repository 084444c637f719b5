package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/keydesk/keydesk/internal/model"
)

// Options selects and tunes the backing database.
type Options struct {
	Driver          string // sqlite (default), postgres, mysql
	DSN             string // for sqlite a file path; empty means in-memory
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store persists registry keys and dashboard API keys. Both tables live in
// the same database but are never joined.
type Store struct {
	db      *sqlx.DB
	dialect *dialect
	now     func() time.Time
}

// Open connects to the configured database and applies migrations.
func Open(ctx context.Context, opts Options) (*Store, error) {
	d, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := d.prepareDSN(opts.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, d.sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", d.name, err)
	}

	if d.name == DriverSQLite {
		// SQLite doesn't support concurrent writes, and an in-memory database
		// lives only as long as its single connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else {
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			db.SetMaxIdleConns(opts.MaxIdleConns)
		}
		if opts.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(opts.ConnMaxLifetime)
		}
	}

	s := &Store{db: db, dialect: d, now: time.Now}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s store: %w", d.name, err)
	}
	return s, nil
}

// Close closes the underlying database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the store driver name (sqlite, postgres or mysql).
func (s *Store) Driver() string {
	return s.dialect.name
}

// Migrate creates the keys and api_keys tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Registry keys
// ---------------------------------------------------------------------------

// InsertKeyIfAbsent stores k unless a record with the same key already
// exists, in which case the existing record is left untouched. It reports
// whether a row was inserted. CreatedAt is set when zero.
func (s *Store) InsertKeyIfAbsent(ctx context.Context, k *model.Key) (bool, error) {
	if k.CreatedAt.IsZero() {
		k.CreatedAt = s.now().UTC()
	}
	var expiration *time.Time
	if k.Expiration != nil {
		e := k.Expiration.UTC()
		expiration = &e
	}

	q := s.db.Rebind(fmt.Sprintf(
		"INSERT INTO %s (%s, %s, created_at, expiration) VALUES (?, ?, ?, ?) %s",
		s.dialect.quote("keys"), s.dialect.quote("key"), s.dialect.quote("type"), s.dialect.upsertNoop,
	))

	result, err := s.db.ExecContext(ctx, q, k.Key, string(k.Type), k.CreatedAt, expiration)
	if err != nil {
		return false, fmt.Errorf("insert key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert key rows affected: %w", err)
	}
	return n > 0, nil
}

// FindKey looks up a registry key by exact match.
func (s *Store) FindKey(ctx context.Context, key string) (*model.Key, error) {
	q := s.db.Rebind(fmt.Sprintf(
		"SELECT %s, %s, created_at, expiration FROM %s WHERE %s = ?",
		s.dialect.quote("key"), s.dialect.quote("type"), s.dialect.quote("keys"), s.dialect.quote("key"),
	))

	var k model.Key
	if err := s.db.GetContext(ctx, &k, q, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find key: %w", err)
	}
	return &k, nil
}

// ListKeys returns every registry key, newest first.
func (s *Store) ListKeys(ctx context.Context) ([]model.Key, error) {
	q := fmt.Sprintf(
		"SELECT %s, %s, created_at, expiration FROM %s ORDER BY created_at DESC, %s",
		s.dialect.quote("key"), s.dialect.quote("type"), s.dialect.quote("keys"), s.dialect.quote("key"),
	)

	var keys []model.Key
	if err := s.db.SelectContext(ctx, &keys, q); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

// ---------------------------------------------------------------------------
// Dashboard API keys
// ---------------------------------------------------------------------------

// CreateAPIKey inserts a new API key. The ID and CreatedAt fields on key are
// populated after a successful insert.
func (s *Store) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	key.CreatedAt = s.now().UTC()

	const insert = `INSERT INTO api_keys (name, key_hash, active, created_at) VALUES (?, ?, ?, ?)`

	if s.dialect.returningID {
		q := s.db.Rebind(insert + " RETURNING id")
		if err := s.db.QueryRowxContext(ctx, q, key.Name, key.KeyHash, key.Active, key.CreatedAt).Scan(&key.ID); err != nil {
			return fmt.Errorf("create api key: %w", err)
		}
		return nil
	}

	result, err := s.db.ExecContext(ctx, s.db.Rebind(insert), key.Name, key.KeyHash, key.Active, key.CreatedAt)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create api key last insert id: %w", err)
	}
	key.ID = id
	return nil
}

// FindAPIKeyByHash looks up an API key by its SHA-256 hash.
func (s *Store) FindAPIKeyByHash(ctx context.Context, hash string) (*model.APIKey, error) {
	q := s.db.Rebind("SELECT id, name, key_hash, active, created_at FROM api_keys WHERE key_hash = ?")

	var key model.APIKey
	if err := s.db.GetContext(ctx, &key, q, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find api key by hash: %w", err)
	}
	return &key, nil
}

// ListAPIKeys returns all API keys ordered by ID descending (newest first).
func (s *Store) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	var keys []model.APIKey
	if err := s.db.SelectContext(ctx, &keys,
		"SELECT id, name, key_hash, active, created_at FROM api_keys ORDER BY id DESC"); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

// SetAPIKeyActive sets the active flag of an API key. Updating an ID that
// does not exist is not an error.
func (s *Store) SetAPIKeyActive(ctx context.Context, id int64, active bool) error {
	q := s.db.Rebind("UPDATE api_keys SET active = ? WHERE id = ?")
	if _, err := s.db.ExecContext(ctx, q, active, id); err != nil {
		return fmt.Errorf("set api key active: %w", err)
	}
	return nil
}
