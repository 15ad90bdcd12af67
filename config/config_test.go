package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "./lightrag_cache", cfg.WorkingDir)
	assert.Equal(t, 32, cfg.EmbeddingBatchSize)
	assert.Equal(t, 1536, cfg.EmbeddingDimensions)
	assert.Equal(t, 0.2, cfg.CosineBetterThanThreshold)
	assert.Empty(t, cfg.MetaFields)
	assert.Equal(t, 10, cfg.Node2Vec.NumWalks)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
working_dir: /data/rag
embedding_batch_num: 8
cosine_better_than_threshold: 0.35
meta_fields:
  - source
  - page
node2vec_params:
  num_walks: 20
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/rag", cfg.WorkingDir)
	assert.Equal(t, 8, cfg.EmbeddingBatchSize)
	assert.Equal(t, 0.35, cfg.CosineBetterThanThreshold)
	assert.Equal(t, []string{"source", "page"}, cfg.MetaFields)
	assert.Equal(t, 20, cfg.Node2Vec.NumWalks)

	// Unset fields keep their defaults.
	assert.Equal(t, 1536, cfg.EmbeddingDimensions)
	assert.Equal(t, 40, cfg.Node2Vec.WalkLength)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestHasMetaField(t *testing.T) {
	cfg := Default()
	cfg.MetaFields = []string{"source"}

	assert.True(t, cfg.HasMetaField("source"))
	assert.False(t, cfg.HasMetaField("page"))
}
