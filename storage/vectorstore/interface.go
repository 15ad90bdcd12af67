// Package vectorstore provides the vector storage contract and its pluggable
// backends. Every backend shares the same upsert protocol: contents are
// embedded in fixed-size batches, all batches concurrently, and the resulting
// vectors are zipped positionally with their input keys before being handed
// to the backend's native index.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrMissingContent is returned when an upserted record lacks the required
// "content" string.
var ErrMissingContent = errors.New("vector record is missing content")

// QueryResult is one similarity match. Distance is the cosine distance from
// the query (smaller is better); Fields carries the stored content and any
// allow-listed metadata.
type QueryResult struct {
	ID       string
	Distance float64
	Fields   map[string]interface{}
}

// VectorStorage is the contract every vector backend implements. A storage
// instance is bound to one namespace, one backing index, and one embedding
// function whose dimensionality fixes the store's vector length.
type VectorStorage interface {
	// Upsert embeds each record's "content" field and stores the vector
	// together with the allow-listed metadata fields. It returns the keys
	// that were actually written. Empty input is non-fatal: it logs a
	// warning and returns (nil, nil) without invoking the embedder. An
	// embedding failure aborts the whole call; no partial vectors are
	// persisted.
	Upsert(ctx context.Context, data map[string]map[string]interface{}) ([]string, error)

	// Query embeds text and returns at most topK results whose cosine
	// distance is within the configured threshold, best match first.
	Query(ctx context.Context, text string, topK int) ([]QueryResult, error)

	// Flush durably persists the index.
	Flush(ctx context.Context) error
}

// collectContents extracts the ids (sorted, for a reproducible zip order) and
// their aligned content strings, rejecting records without content.
func collectContents(data map[string]map[string]interface{}) ([]string, []string, error) {
	ids := make([]string, 0, len(data))
	for id := range data {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	contents := make([]string, len(ids))
	for i, id := range ids {
		content, ok := data[id]["content"].(string)
		if !ok || content == "" {
			return nil, nil, fmt.Errorf("record %q: %w", id, ErrMissingContent)
		}
		contents[i] = content
	}
	return ids, contents, nil
}

// pickMetaFields filters a record down to the allow-listed metadata fields.
// Unknown fields are silently dropped.
func pickMetaFields(record map[string]interface{}, allowed []string) map[string]interface{} {
	meta := make(map[string]interface{})
	for _, f := range allowed {
		if v, ok := record[f]; ok {
			meta[f] = v
		}
	}
	return meta
}
