package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/CodeStorm-SRL/LightRAG/config"
)

// JSONKVStorage is the flat-file reference backend. The whole namespace is
// loaded into memory at construction and written back as one JSON document on
// Flush; a crash before Flush loses uncommitted upserts.
type JSONKVStorage struct {
	namespace string
	fileName  string
	data      map[string]Record
	logger    *slog.Logger
}

// NewJSONKVStorage binds a store to kv_store_<namespace>.json under the
// configured working directory, loading any existing data.
func NewJSONKVStorage(cfg *config.Config, namespace string) (*JSONKVStorage, error) {
	if err := os.MkdirAll(cfg.WorkingDir, 0755); err != nil {
		return nil, fmt.Errorf("create working dir: %w", err)
	}

	s := &JSONKVStorage{
		namespace: namespace,
		fileName:  filepath.Join(cfg.WorkingDir, fmt.Sprintf("kv_store_%s.json", namespace)),
		data:      make(map[string]Record),
		logger:    slog.Default().With("namespace", namespace),
	}

	raw, err := os.ReadFile(s.fileName)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", s.fileName, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.data); err != nil {
			return nil, fmt.Errorf("parse %s: %w", s.fileName, err)
		}
	}

	s.logger.Info("loaded KV storage", "records", len(s.data))
	return s, nil
}

func (s *JSONKVStorage) GetByID(ctx context.Context, id string) (Record, error) {
	return copyRecord(s.data[id]), nil
}

func (s *JSONKVStorage) GetByIDs(ctx context.Context, ids []string, fields []string) ([]Record, error) {
	out := make([]Record, len(ids))
	for i, id := range ids {
		rec, ok := s.data[id]
		if !ok {
			continue
		}
		out[i] = filterFields(copyRecord(rec), fields)
	}
	return out, nil
}

func (s *JSONKVStorage) FilterKeys(ctx context.Context, ids []string) (map[string]struct{}, error) {
	missing := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := s.data[id]; !ok {
			missing[id] = struct{}{}
		}
	}
	return missing, nil
}

func (s *JSONKVStorage) Upsert(ctx context.Context, data map[string]Record) (map[string]Record, error) {
	inserted := make(map[string]Record, len(data))
	for k, v := range data {
		if _, exists := s.data[k]; exists {
			continue
		}
		s.data[k] = copyRecord(v)
		inserted[k] = v
	}
	return inserted, nil
}

func (s *JSONKVStorage) AllKeys(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// Drop clears the in-memory namespace; the backing file shrinks to match on
// the next Flush.
func (s *JSONKVStorage) Drop(ctx context.Context) error {
	s.data = make(map[string]Record)
	return nil
}

// Flush writes the whole namespace atomically: a uniquely-named temp file in
// the same directory, then a rename over the target.
func (s *JSONKVStorage) Flush(ctx context.Context) error {
	raw, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encode KV storage %s: %w", s.namespace, err)
	}

	tmp := fmt.Sprintf("%s.%s.tmp", s.fileName, uuid.NewString())
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.fileName); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}

	s.logger.Info("flushed KV storage", "records", len(s.data))
	return nil
}

var _ KVStorage = (*JSONKVStorage)(nil)
