package vectorstore

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/coder/hnsw"
	"github.com/google/uuid"

	"github.com/CodeStorm-SRL/LightRAG/config"
	"github.com/CodeStorm-SRL/LightRAG/embedding"
)

// HNSWStorage is the local vector index backend: an in-process HNSW graph
// with cosine distance, persisted to vdb_<namespace>.hnsw plus a gob sidecar
// holding the id mappings and stored fields.
type HNSWStorage struct {
	namespace string
	indexPath string
	metaPath  string
	batchSize int
	threshold float64
	metaAllow []string
	embedder  embedding.BatchEmbedder
	logger    *slog.Logger

	graph *hnsw.Graph[uint64]

	// String ids map to internal uint64 keys. Replacing an id orphans its
	// old graph node rather than deleting it; orphans are skipped at query
	// time.
	idMap   map[string]uint64
	keyMap  map[uint64]string
	records map[string]storedFields
	nextKey uint64
}

// storedFields is what the sidecar keeps per id besides the vector.
type storedFields struct {
	Content string
	Meta    map[string]interface{}
}

// hnswSidecar is the gob-encoded persistence format for everything the HNSW
// graph export does not cover.
type hnswSidecar struct {
	IDMap   map[string]uint64
	Records map[string]storedFields
	NextKey uint64
}

// NewHNSWStorage binds a store to vdb_<namespace>.hnsw under the configured
// working directory, loading the index if it exists. The embedder fixes the
// store's vector dimensionality.
func NewHNSWStorage(cfg *config.Config, namespace string, embedder embedding.BatchEmbedder) (*HNSWStorage, error) {
	if err := os.MkdirAll(cfg.WorkingDir, 0755); err != nil {
		return nil, fmt.Errorf("create working dir: %w", err)
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance

	s := &HNSWStorage{
		namespace: namespace,
		indexPath: filepath.Join(cfg.WorkingDir, fmt.Sprintf("vdb_%s.hnsw", namespace)),
		metaPath:  filepath.Join(cfg.WorkingDir, fmt.Sprintf("vdb_%s.hnsw.meta", namespace)),
		batchSize: cfg.EmbeddingBatchSize,
		threshold: cfg.CosineBetterThanThreshold,
		metaAllow: cfg.MetaFields,
		embedder:  embedder,
		logger:    slog.Default().With("namespace", namespace),
		graph:     graph,
		idMap:     make(map[string]uint64),
		keyMap:    make(map[uint64]string),
		records:   make(map[string]storedFields),
	}

	if _, err := os.Stat(s.metaPath); err == nil {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("load vector storage %s: %w", namespace, err)
		}
	}

	s.logger.Info("loaded vector storage", "backend", "hnsw", "records", len(s.idMap))
	return s, nil
}

func (s *HNSWStorage) Upsert(ctx context.Context, data map[string]map[string]interface{}) ([]string, error) {
	s.logger.Info("inserting vectors", "count", len(data))
	if len(data) == 0 {
		s.logger.Warn("upsert called with empty data")
		return nil, nil
	}

	ids, contents, err := collectContents(data)
	if err != nil {
		return nil, err
	}

	vectors, err := embedding.EmbedInBatches(ctx, s.embedder, contents, s.batchSize)
	if err != nil {
		return nil, err
	}

	for i, id := range ids {
		if oldKey, exists := s.idMap[id]; exists {
			delete(s.keyMap, oldKey)
			delete(s.idMap, id)
		}

		key := s.nextKey
		s.nextKey++

		vec32 := make([]float32, len(vectors[i]))
		for j, v := range vectors[i] {
			vec32[j] = float32(v)
		}
		s.graph.Add(hnsw.MakeNode(key, vec32))

		s.idMap[id] = key
		s.keyMap[key] = id
		s.records[id] = storedFields{
			Content: contents[i],
			Meta:    pickMetaFields(data[id], s.metaAllow),
		}
	}

	return ids, nil
}

func (s *HNSWStorage) Query(ctx context.Context, text string, topK int) ([]QueryResult, error) {
	if s.graph.Len() == 0 || topK <= 0 {
		return []QueryResult{}, nil
	}

	vectors, err := embedding.EmbedInBatches(ctx, s.embedder, []string{text}, 1)
	if err != nil {
		return nil, err
	}
	query32 := make([]float32, len(vectors[0]))
	for i, v := range vectors[0] {
		query32[i] = float32(v)
	}

	nodes := s.graph.Search(query32, topK)

	results := make([]QueryResult, 0, len(nodes))
	for _, node := range nodes {
		id, ok := s.keyMap[node.Key]
		if !ok {
			continue // orphaned by a later upsert of the same id
		}

		distance := float64(s.graph.Distance(query32, node.Value))
		if distance > s.threshold {
			continue
		}

		stored := s.records[id]
		fields := map[string]interface{}{"content": stored.Content}
		for k, v := range stored.Meta {
			fields[k] = v
		}
		results = append(results, QueryResult{ID: id, Distance: distance, Fields: fields})
	}
	return results, nil
}

// Flush writes the graph export and the sidecar, each via a uniquely-named
// temp file renamed over the target.
func (s *HNSWStorage) Flush(ctx context.Context) error {
	if err := s.writeAtomic(s.indexPath, func(f *os.File) error {
		return s.graph.Export(f)
	}); err != nil {
		return fmt.Errorf("flush index %s: %w", s.namespace, err)
	}

	sidecar := hnswSidecar{IDMap: s.idMap, Records: s.records, NextKey: s.nextKey}
	if err := s.writeAtomic(s.metaPath, func(f *os.File) error {
		return gob.NewEncoder(f).Encode(sidecar)
	}); err != nil {
		return fmt.Errorf("flush sidecar %s: %w", s.namespace, err)
	}

	s.logger.Info("flushed vector storage", "records", len(s.idMap))
	return nil
}

func (s *HNSWStorage) writeAtomic(path string, write func(*os.File) error) error {
	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func (s *HNSWStorage) load() error {
	metaFile, err := os.Open(s.metaPath)
	if err != nil {
		return err
	}
	defer metaFile.Close()

	var sidecar hnswSidecar
	if err := gob.NewDecoder(metaFile).Decode(&sidecar); err != nil {
		return fmt.Errorf("decode sidecar: %w", err)
	}
	s.idMap = sidecar.IDMap
	s.records = sidecar.Records
	s.nextKey = sidecar.NextKey
	s.keyMap = make(map[uint64]string, len(s.idMap))
	for id, key := range s.idMap {
		s.keyMap[key] = id
	}

	indexFile, err := os.Open(s.indexPath)
	if err != nil {
		return err
	}
	defer indexFile.Close()

	// Import requires an io.ByteReader.
	if err := s.graph.Import(bufio.NewReader(indexFile)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}
	return nil
}

var _ VectorStorage = (*HNSWStorage)(nil)
