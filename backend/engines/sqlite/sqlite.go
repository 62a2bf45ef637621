// Package sqlite implements a relational backend.KVBackend using
// modernc.org/sqlite, grounded on aladin2907-overhuman's
// internal/storage.SQLiteStore: a single `kv_store` table, WAL mode for
// concurrent readers, and LIKE-based pattern queries.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/kolbkit/ckv/backend"
	"github.com/kolbkit/ckv/backend/util"
	"github.com/kolbkit/ckv/ckverr"
)

// MaxKeyBytes is the key length limit this engine advertises.
const MaxKeyBytes = 100

const schema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);`

type sqliteBackend struct {
	db *sql.DB
}

// New opens (or creates) a SQLite-backed backend at path. Use ":memory:"
// for an ephemeral, in-process database.
func New(path string) (backend.KVBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ckverr.Wrap(ckverr.CodeBackendIO, fmt.Sprintf("open sqlite %q", path), err)
	}
	// a single *sql.DB is already safe for concurrent use; WAL mode lets
	// readers proceed while DoBulk holds a write transaction.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, ckverr.Wrap(ckverr.CodeBackendIO, "set WAL mode", err)
	}
	return &sqliteBackend{db: db}, nil
}

func (s *sqliteBackend) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return ckverr.Wrap(ckverr.CodeBackendIO, "create schema", err)
	}
	return nil
}

func (s *sqliteBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ckverr.Wrap(ckverr.CodeBackendIO, fmt.Sprintf("get %q", key), err)
	}
	return value, true, nil
}

func (s *sqliteBackend) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_store (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return ckverr.Wrap(ckverr.CodeBackendIO, fmt.Sprintf("set %q", key), err)
	}
	return nil
}

func (s *sqliteBackend) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv_store WHERE key = ?", key); err != nil {
		return ckverr.Wrap(ckverr.CodeBackendIO, fmt.Sprintf("remove %q", key), err)
	}
	return nil
}

func (s *sqliteBackend) FindKeys(ctx context.Context, pattern string, notPattern string) ([]string, error) {
	query := "SELECT key FROM kv_store WHERE key LIKE ? ESCAPE '\\'"
	args := []any{util.GlobToSQLLike(pattern)}
	if notPattern != "" {
		query += " AND key NOT LIKE ? ESCAPE '\\'"
		args = append(args, util.GlobToSQLLike(notPattern))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ckverr.Wrap(ckverr.CodeBackendIO, "findKeys", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, ckverr.Wrap(ckverr.CodeBackendIO, "findKeys scan", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *sqliteBackend) DoBulk(ctx context.Context, ops []backend.Op) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ckverr.Wrap(ckverr.CodeBackendIO, "doBulk begin", err)
	}
	defer tx.Rollback()

	for _, op := range ops {
		switch op.Type {
		case backend.OpSet:
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO kv_store (key, value) VALUES (?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
				op.Key, op.Value); err != nil {
				return ckverr.Wrap(ckverr.CodeBackendIO, fmt.Sprintf("doBulk set %q", op.Key), err)
			}
		case backend.OpRemove:
			if _, err := tx.ExecContext(ctx, "DELETE FROM kv_store WHERE key = ?", op.Key); err != nil {
				return ckverr.Wrap(ckverr.CodeBackendIO, fmt.Sprintf("doBulk remove %q", op.Key), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return ckverr.Wrap(ckverr.CodeBackendIO, "doBulk commit", err)
	}
	return nil
}

func (s *sqliteBackend) Close(_ context.Context) error {
	return s.db.Close()
}

func (s *sqliteBackend) MaxKeyLen() int {
	return MaxKeyBytes
}

func (s *sqliteBackend) Info() backend.Info {
	return backend.Info{Name: "sqlite", MaxKeyLen: MaxKeyBytes}
}
