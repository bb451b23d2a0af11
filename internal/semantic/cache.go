package semantic

import (
	"context"
	"database/sql"
	"encoding/json"
)

// Cache is the SQLite-backed embedding cache, keyed by content hash and
// model. Misses and write failures are silent; the cache only saves
// repeat embedding calls.
type Cache struct {
	db *sql.DB
}

// NewCache wraps an open database. The embedding_cache table is created
// by the store's schema bootstrap.
func NewCache(db *sql.DB) *Cache {
	return &Cache{db: db}
}

// Get retrieves a cached embedding.
func (c *Cache) Get(contentHash, model string) ([]float32, bool) {
	if c == nil || c.db == nil {
		return nil, false
	}
	var blob []byte
	err := c.db.QueryRow(
		`SELECT embedding FROM embedding_cache WHERE content_hash = ? AND model = ?`,
		contentHash, model,
	).Scan(&blob)
	if err != nil {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(blob, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

// Set stores an embedding.
func (c *Cache) Set(contentHash, model string, embedding []float32) {
	if c == nil || c.db == nil {
		return
	}
	blob, _ := json.Marshal(embedding)
	_, _ = c.db.Exec(
		`INSERT OR REPLACE INTO embedding_cache (content_hash, model, embedding, created_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)`,
		contentHash, model, blob,
	)
}

// Service couples an embedder with the cache.
type Service struct {
	embedder Embedder
	cache    *Cache
}

// NewService creates a caching embedding service. cache may be nil.
func NewService(embedder Embedder, cache *Cache) *Service {
	return &Service{embedder: embedder, cache: cache}
}

func (s *Service) Model() string { return s.embedder.Model() }

// Embed returns embeddings for texts, serving cached vectors where
// available and embedding only the misses.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	model := s.embedder.Model()
	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if vec, ok := s.cache.Get(hashText(text), model); ok {
			results[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) > 0 {
		vecs, err := s.embedder.Embed(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, vec := range vecs {
			results[missIdx[j]] = vec
			s.cache.Set(hashText(missTexts[j]), model, vec)
		}
	}
	return results, nil
}
