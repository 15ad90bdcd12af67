// Package storage bundles the namespaced key-value, vector, and graph
// backends behind a single container so a pipeline can wire all of its
// persistence in one place.
package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/CodeStorm-SRL/LightRAG/storage/graphstore"
	"github.com/CodeStorm-SRL/LightRAG/storage/kvstore"
	"github.com/CodeStorm-SRL/LightRAG/storage/vectorstore"
)

// StorageContext is a unified container for storage components. Each store is
// registered under its namespace; the container never creates backends on its
// own, callers choose the concrete implementations.
type StorageContext struct {
	kvStores     map[string]kvstore.KVStorage
	vectorStores map[string]vectorstore.VectorStorage
	graphStores  map[string]graphstore.GraphStorage
}

// NewStorageContext creates an empty container.
func NewStorageContext() *StorageContext {
	return &StorageContext{
		kvStores:     make(map[string]kvstore.KVStorage),
		vectorStores: make(map[string]vectorstore.VectorStorage),
		graphStores:  make(map[string]graphstore.GraphStorage),
	}
}

// AddKVStore registers a key-value store under its namespace, replacing any
// previous registration.
func (sc *StorageContext) AddKVStore(namespace string, s kvstore.KVStorage) {
	sc.kvStores[namespace] = s
}

// AddVectorStore registers a vector store under its namespace.
func (sc *StorageContext) AddVectorStore(namespace string, s vectorstore.VectorStorage) {
	sc.vectorStores[namespace] = s
}

// AddGraphStore registers a graph store under its namespace.
func (sc *StorageContext) AddGraphStore(namespace string, s graphstore.GraphStorage) {
	sc.graphStores[namespace] = s
}

// KVStore returns the key-value store for the namespace, or nil if none is
// registered.
func (sc *StorageContext) KVStore(namespace string) kvstore.KVStorage {
	return sc.kvStores[namespace]
}

// VectorStore returns the vector store for the namespace, or nil.
func (sc *StorageContext) VectorStore(namespace string) vectorstore.VectorStorage {
	return sc.vectorStores[namespace]
}

// GraphStore returns the graph store for the namespace, or nil.
func (sc *StorageContext) GraphStore(namespace string) graphstore.GraphStorage {
	return sc.graphStores[namespace]
}

// FlushAll flushes every registered store in deterministic namespace order,
// key-value stores first, then vector stores, then graph stores. The first
// failure aborts the sweep.
func (sc *StorageContext) FlushAll(ctx context.Context) error {
	for _, ns := range sortedKeys(sc.kvStores) {
		if err := sc.kvStores[ns].Flush(ctx); err != nil {
			return fmt.Errorf("flush kv store %s: %w", ns, err)
		}
	}
	for _, ns := range sortedKeys(sc.vectorStores) {
		if err := sc.vectorStores[ns].Flush(ctx); err != nil {
			return fmt.Errorf("flush vector store %s: %w", ns, err)
		}
	}
	for _, ns := range sortedKeys(sc.graphStores) {
		if err := sc.graphStores[ns].Flush(ctx); err != nil {
			return fmt.Errorf("flush graph store %s: %w", ns, err)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
