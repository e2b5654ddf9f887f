package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ai-fitness-coach/internal/logger"
)

// CachedEmbeddingGenerator wraps an EmbeddingGenerator and memoises results
// in a JSON file so repeated queries and re-ingestion skip the API.
type CachedEmbeddingGenerator struct {
	realGen       EmbeddingGenerator
	cacheFilePath string
	log           *logger.Logger

	mu    sync.RWMutex
	cache map[string][]float32
}

// NewCachedEmbeddingGenerator loads the cache from cacheFilePath if it exists.
func NewCachedEmbeddingGenerator(realGen EmbeddingGenerator, cacheFilePath string, log *logger.Logger) (*CachedEmbeddingGenerator, error) {
	c := &CachedEmbeddingGenerator{
		realGen:       realGen,
		cache:         make(map[string][]float32),
		cacheFilePath: cacheFilePath,
		log:           log.With("service", "EmbeddingCache"),
	}

	cacheDir := filepath.Dir(cacheFilePath)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", cacheDir, err)
	}

	data, err := os.ReadFile(cacheFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			c.log.Info("cache file not found, starting empty", "path", cacheFilePath)
			return c, nil
		}
		return nil, fmt.Errorf("failed to read cache file %s: %w", cacheFilePath, err)
	}

	if err := json.Unmarshal(data, &c.cache); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data from %s: %w", cacheFilePath, err)
	}

	c.log.Info("loaded embeddings from cache", "count", len(c.cache), "path", cacheFilePath)
	return c, nil
}

// GenerateEmbedding checks the cache first. The lock is released while the
// real generator runs, so two concurrent misses for one text may both call it.
func (c *CachedEmbeddingGenerator) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	c.mu.RLock()
	embedding, ok := c.cache[text]
	c.mu.RUnlock()
	if ok {
		return embedding, nil
	}

	embedding, err := c.realGen.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding using real generator: %w", err)
	}

	c.mu.Lock()
	c.cache[text] = embedding
	c.mu.Unlock()
	return embedding, nil
}

// Len returns the number of cached embeddings.
func (c *CachedEmbeddingGenerator) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// SaveCache persists the current in-memory cache to the file system.
func (c *CachedEmbeddingGenerator) SaveCache() error {
	c.mu.RLock()
	data, err := json.Marshal(c.cache)
	n := len(c.cache)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := os.WriteFile(c.cacheFilePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file %s: %w", c.cacheFilePath, err)
	}

	c.log.Info("saved embeddings to cache", "count", n, "path", c.cacheFilePath)
	return nil
}
