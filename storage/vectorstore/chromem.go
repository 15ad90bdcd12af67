package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/philippgille/chromem-go"

	"github.com/CodeStorm-SRL/LightRAG/config"
	"github.com/CodeStorm-SRL/LightRAG/embedding"
)

// ChromemStorage is the document-oriented vector database backend, built on a
// persistent chromem-go collection named after the namespace.
//
// Unlike the HNSW backend it deduplicates against already-stored ids before
// invoking the embedder, so re-upserting known content costs no embedding
// calls. The final stored result is the same either way.
type ChromemStorage struct {
	namespace  string
	batchSize  int
	threshold  float64
	metaAllow  []string
	embedder   embedding.BatchEmbedder
	logger     *slog.Logger
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemStorage binds a store to a collection named after the namespace,
// persisted under <working dir>/chromem. Writes are persisted synchronously
// by the engine, so Flush is a no-op.
func NewChromemStorage(cfg *config.Config, namespace string, embedder embedding.BatchEmbedder) (*ChromemStorage, error) {
	db, err := chromem.NewPersistentDB(filepath.Join(cfg.WorkingDir, "chromem"), false)
	if err != nil {
		return nil, fmt.Errorf("create chromem db: %w", err)
	}

	// Embeddings are computed by the shared batching protocol and passed in
	// explicitly, so the collection gets no embedding function of its own.
	collection, err := db.GetOrCreateCollection(namespace, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get or create collection %s: %w", namespace, err)
	}

	s := &ChromemStorage{
		namespace:  namespace,
		batchSize:  cfg.EmbeddingBatchSize,
		threshold:  cfg.CosineBetterThanThreshold,
		metaAllow:  cfg.MetaFields,
		embedder:   embedder,
		logger:     slog.Default().With("namespace", namespace),
		db:         db,
		collection: collection,
	}
	s.logger.Info("loaded vector storage", "backend", "chromem", "records", collection.Count())
	return s, nil
}

func (s *ChromemStorage) Upsert(ctx context.Context, data map[string]map[string]interface{}) ([]string, error) {
	s.logger.Info("inserting vectors", "count", len(data))
	if len(data) == 0 {
		s.logger.Warn("upsert called with empty data")
		return nil, nil
	}

	ids, contents, err := collectContents(data)
	if err != nil {
		return nil, err
	}

	// Embed only the ids the collection does not hold yet; embedding calls
	// dominate the cost of an upsert.
	missingIDs := make([]string, 0, len(ids))
	missingContents := make([]string, 0, len(contents))
	for i, id := range ids {
		if _, err := s.collection.GetByID(ctx, id); err != nil {
			missingIDs = append(missingIDs, id)
			missingContents = append(missingContents, contents[i])
		}
	}
	if len(missingIDs) == 0 {
		s.logger.Info("no new vectors to insert")
		return nil, nil
	}

	vectors, err := embedding.EmbedInBatches(ctx, s.embedder, missingContents, s.batchSize)
	if err != nil {
		return nil, err
	}

	docs := make([]chromem.Document, len(missingIDs))
	for i, id := range missingIDs {
		// chromem metadata values are strings.
		meta := make(map[string]string)
		for k, v := range pickMetaFields(data[id], s.metaAllow) {
			meta[k] = fmt.Sprintf("%v", v)
		}

		vec32 := make([]float32, len(vectors[i]))
		for j, v := range vectors[i] {
			vec32[j] = float32(v)
		}

		docs[i] = chromem.Document{
			ID:        id,
			Content:   missingContents[i],
			Metadata:  meta,
			Embedding: vec32,
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("add documents to %s: %w", s.namespace, err)
	}
	return missingIDs, nil
}

func (s *ChromemStorage) Query(ctx context.Context, text string, topK int) ([]QueryResult, error) {
	count := s.collection.Count()
	if count == 0 || topK <= 0 {
		return []QueryResult{}, nil
	}
	if topK > count {
		topK = count
	}

	vectors, err := embedding.EmbedInBatches(ctx, s.embedder, []string{text}, 1)
	if err != nil {
		return nil, err
	}
	query32 := make([]float32, len(vectors[0]))
	for i, v := range vectors[0] {
		query32[i] = float32(v)
	}

	matches, err := s.collection.QueryEmbedding(ctx, query32, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", s.namespace, err)
	}

	results := make([]QueryResult, 0, len(matches))
	for _, m := range matches {
		distance := 1 - float64(m.Similarity)
		if distance > s.threshold {
			continue
		}

		fields := map[string]interface{}{"content": m.Content}
		for k, v := range m.Metadata {
			fields[k] = v
		}
		results = append(results, QueryResult{ID: m.ID, Distance: distance, Fields: fields})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	return results, nil
}

// Flush is a no-op: the persistent engine writes every document as it is
// added.
func (s *ChromemStorage) Flush(ctx context.Context) error {
	return nil
}

var _ VectorStorage = (*ChromemStorage)(nil)
