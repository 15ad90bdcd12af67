// Package config holds the shared configuration surface for the storage
// layer: where backing files live, how embedding batches are sized, and the
// query-time similarity cutoff.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultWorkingDir   = "./lightrag_cache"
	DefaultBatchSize    = 32
	DefaultDimensions   = 1536
	DefaultCosineCutoff = 0.2
)

// Node2VecParams are passed through to the external node-embedding routine.
type Node2VecParams struct {
	Dimensions int   `yaml:"dimensions"`
	NumWalks   int   `yaml:"num_walks"`
	WalkLength int   `yaml:"walk_length"`
	WindowSize int   `yaml:"window_size"`
	Iterations int   `yaml:"iterations"`
	RandomSeed int64 `yaml:"random_seed"`
}

// Config configures every store bound to one working directory.
// Each store instance additionally takes a namespace; namespaces never share
// backing files.
type Config struct {
	// WorkingDir is the directory all backing files are created under.
	WorkingDir string `yaml:"working_dir"`

	// EmbeddingBatchSize is the number of content strings sent to the
	// embedding function in one call.
	EmbeddingBatchSize int `yaml:"embedding_batch_num"`

	// EmbeddingDimensions is the fixed dimensionality every stored vector
	// must have.
	EmbeddingDimensions int `yaml:"embedding_dim"`

	// CosineBetterThanThreshold is the query cutoff: results whose cosine
	// distance from the query exceeds it are dropped.
	CosineBetterThanThreshold float64 `yaml:"cosine_better_than_threshold"`

	// MetaFields is the allow-list of metadata field names a vector store
	// persists alongside content. Unknown fields are silently dropped.
	MetaFields []string `yaml:"meta_fields"`

	Node2Vec Node2VecParams `yaml:"node2vec_params"`
}

// Default returns a Config with the stock defaults.
func Default() *Config {
	return &Config{
		WorkingDir:                DefaultWorkingDir,
		EmbeddingBatchSize:        DefaultBatchSize,
		EmbeddingDimensions:       DefaultDimensions,
		CosineBetterThanThreshold: DefaultCosineCutoff,
		Node2Vec: Node2VecParams{
			Dimensions: 1536,
			NumWalks:   10,
			WalkLength: 40,
			WindowSize: 2,
			Iterations: 3,
			RandomSeed: 3,
		},
	}
}

// Load reads a YAML config file. Fields absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// HasMetaField reports whether name is in the metadata allow-list.
func (c *Config) HasMetaField(name string) bool {
	for _, f := range c.MetaFields {
		if f == name {
			return true
		}
	}
	return false
}
