package kvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/CodeStorm-SRL/LightRAG/config"
)

// SQLiteKVStorage is the embedded-SQL backend. Every write is durable as soon
// as its statement commits, so Flush is a no-op; the store still exposes it to
// satisfy the contract's durability checkpoint.
type SQLiteKVStorage struct {
	namespace string
	fileName  string
	db        *sql.DB
	logger    *slog.Logger
}

// NewSQLiteKVStorage binds a store to kv_store_<namespace>.db under the
// configured working directory, creating the schema if needed. The returned
// store owns the database handle; call Close to release it.
func NewSQLiteKVStorage(cfg *config.Config, namespace string) (*SQLiteKVStorage, error) {
	if err := os.MkdirAll(cfg.WorkingDir, 0755); err != nil {
		return nil, fmt.Errorf("create working dir: %w", err)
	}

	fileName := filepath.Join(cfg.WorkingDir, fmt.Sprintf("kv_store_%s.db", namespace))
	db, err := sql.Open("sqlite", fileName)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fileName, err)
	}

	if _, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS kv_store (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv_store schema: %w", err)
	}

	s := &SQLiteKVStorage{
		namespace: namespace,
		fileName:  fileName,
		db:        db,
		logger:    slog.Default().With("namespace", namespace),
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM kv_store`).Scan(&count); err != nil {
		db.Close()
		return nil, fmt.Errorf("count kv_store rows: %w", err)
	}
	s.logger.Info("loaded KV storage", "backend", "sqlite", "records", count)
	return s, nil
}

func (s *SQLiteKVStorage) GetByID(ctx context.Context, id string) (Record, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", id, err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode %q: %w", id, err)
	}
	return rec, nil
}

func (s *SQLiteKVStorage) GetByIDs(ctx context.Context, ids []string, fields []string) ([]Record, error) {
	out := make([]Record, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	found, err := s.selectByKeys(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i, id := range ids {
		if rec, ok := found[id]; ok {
			out[i] = filterFields(rec, fields)
		}
	}
	return out, nil
}

func (s *SQLiteKVStorage) FilterKeys(ctx context.Context, ids []string) (map[string]struct{}, error) {
	missing := make(map[string]struct{})
	if len(ids) == 0 {
		return missing, nil
	}

	found, err := s.selectByKeys(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing[id] = struct{}{}
		}
	}
	return missing, nil
}

func (s *SQLiteKVStorage) Upsert(ctx context.Context, data map[string]Record) (map[string]Record, error) {
	if len(data) == 0 {
		return map[string]Record{}, nil
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	missing, err := s.FilterKeys(ctx, keys)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO kv_store (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO NOTHING`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := make(map[string]Record, len(missing))
	for key := range missing {
		raw, err := json.Marshal(data[key])
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", key, err)
		}
		if _, err := stmt.ExecContext(ctx, key, string(raw)); err != nil {
			return nil, fmt.Errorf("insert %q: %w", key, err)
		}
		inserted[key] = data[key]
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert: %w", err)
	}
	return inserted, nil
}

func (s *SQLiteKVStorage) AllKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv_store`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *SQLiteKVStorage) Drop(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store`); err != nil {
		return fmt.Errorf("drop namespace %s: %w", s.namespace, err)
	}
	return nil
}

// Flush is a no-op: statements are durable when they commit.
func (s *SQLiteKVStorage) Flush(ctx context.Context) error {
	return nil
}

// Close releases the database handle.
func (s *SQLiteKVStorage) Close() error {
	return s.db.Close()
}

// selectByKeys fetches the stored records for the given keys.
func (s *SQLiteKVStorage) selectByKeys(ctx context.Context, keys []string) (map[string]Record, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT key, value FROM kv_store WHERE key IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("select keys: %w", err)
	}
	defer rows.Close()

	found := make(map[string]Record)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode %q: %w", key, err)
		}
		found[key] = rec
	}
	return found, rows.Err()
}

var _ KVStorage = (*SQLiteKVStorage)(nil)
