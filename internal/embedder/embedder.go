package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrBatchTooLarge     = errors.New("batch size exceeds limit")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// DefaultCacheSize bounds the embedding cache. Play descriptions repeat
// heavily across games, so most of a season fits.
const DefaultCacheSize = 10000

// Embedding is a vector for one piece of play text
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	Hash      string // CacheKey of the source text
}

// EmbeddingRequest embeds one text, usually a search query.
type EmbeddingRequest struct {
	Text  string
	Model string // Optional: override default model
}

// BatchEmbeddingRequest embeds the texts of a batch of plays.
type BatchEmbeddingRequest struct {
	Texts []string
	Model string // Optional: override default model
}

// BatchEmbeddingResponse holds one embedding per requested text, in order.
type BatchEmbeddingResponse struct {
	Embeddings []*Embedding
	Provider   string
	Model      string
}

// Embedder turns play text and search queries into vectors. Queries and
// indexed plays must go through the same provider and model.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error)
	GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error)
	Dimension() int
	Provider() string
	Model() string
	Close() error
}

// Cache is an LRU of embeddings keyed by model and normalized text.
type Cache struct {
	cache *lru.Cache[string, *Embedding]
}

// NewCache creates a cache holding up to maxLen embeddings; maxLen <= 0
// uses DefaultCacheSize.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = DefaultCacheSize
	}
	cache, err := lru.New[string, *Embedding](maxLen)
	if err != nil {
		cache, _ = lru.New[string, *Embedding](DefaultCacheSize)
	}
	return &Cache{cache: cache}
}

// Get returns a copy of the cached embedding of text under model.
func (c *Cache) Get(model, text string) (*Embedding, bool) {
	emb, ok := c.cache.Get(CacheKey(model, text))
	if !ok {
		return nil, false
	}
	out := *emb
	out.Vector = append([]float32(nil), emb.Vector...)
	return &out, true
}

// Put stores a copy of emb as the embedding of text under model and stamps
// emb.Hash.
func (c *Cache) Put(model, text string, emb *Embedding) {
	emb.Hash = CacheKey(model, text)
	stored := *emb
	stored.Vector = append([]float32(nil), emb.Vector...)
	c.cache.Add(emb.Hash, &stored)
}

// Size returns the number of cached embeddings.
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.cache.Purge()
}

// CacheKey hashes text with whitespace collapsed, scoped by model so that
// vectors of another provider are never served.
func CacheKey(model, text string) string {
	h := sha256.Sum256([]byte(model + "\x00" + strings.Join(strings.Fields(text), " ")))
	return hex.EncodeToString(h[:])
}

// ValidateTexts rejects empty batches, blank texts and batches above max.
// max <= 0 disables the size check.
func ValidateTexts(texts []string, max int) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}
	if max > 0 && len(texts) > max {
		return fmt.Errorf("%w: %d texts, max %d", ErrBatchTooLarge, len(texts), max)
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: text at index %d: %w", ErrInvalidInput, i, ErrEmptyText)
		}
	}
	return nil
}
