// Package kvstore provides the key-value storage contract for raw records
// and its pluggable backends. Writes are insert-only per key: a key that
// already exists is never overwritten, and Upsert reports only the keys it
// actually inserted so callers can skip redundant downstream work.
package kvstore

import (
	"context"
	"encoding/json"
)

// Record is a schemaless JSON-compatible value stored under a string key.
type Record map[string]interface{}

// KVStorage is the contract every key-value backend implements. A storage
// instance is bound to exactly one namespace and exclusively owns its backing
// resource; callers must not issue concurrent writes against the same
// namespace.
type KVStorage interface {
	// GetByID returns the record for id, or nil if it is absent.
	GetByID(ctx context.Context, id string) (Record, error)

	// GetByIDs returns one entry per requested id, in input order, with nil
	// standing in for absent ids. When fields is non-nil each returned
	// record is filtered down to the allow-listed field names.
	GetByIDs(ctx context.Context, ids []string, fields []string) ([]Record, error)

	// FilterKeys returns the subset of ids that are NOT present yet.
	FilterKeys(ctx context.Context, ids []string) (map[string]struct{}, error)

	// Upsert inserts the records whose keys are absent and returns exactly
	// that subset. Existing keys are left untouched.
	Upsert(ctx context.Context, data map[string]Record) (map[string]Record, error)

	// AllKeys returns every key currently stored.
	AllKeys(ctx context.Context) ([]string, error)

	// Drop clears the entire namespace. Idempotent.
	Drop(ctx context.Context) error

	// Flush durably persists pending state. There is no implicit background
	// flushing; callers invoke it at the end of a batch of operations.
	Flush(ctx context.Context) error
}

// filterFields returns a copy of rec restricted to the given field names.
func filterFields(rec Record, fields []string) Record {
	if rec == nil || fields == nil {
		return rec
	}
	out := make(Record, len(fields))
	for _, f := range fields {
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}
	return out
}

// copyRecord creates a deep copy of a Record via a JSON round trip, falling
// back to a shallow copy for values JSON cannot represent.
func copyRecord(rec Record) Record {
	if rec == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err == nil {
		var out Record
		if err := json.Unmarshal(data, &out); err == nil {
			return out
		}
	}
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
