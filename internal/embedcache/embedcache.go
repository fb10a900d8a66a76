// Package embedcache memoizes embeddings in memory and, optionally, in a
// persistent store keyed by model and text hash.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/spigell/smart-applier/internal/storage"
)

const (
	defaultTTL     = time.Hour
	cleanupPeriod  = 10 * time.Minute
	defaultModelID = "default"
)

// Embedder is the wrapped embedding provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store persists embeddings. storage.DB implements it.
type Store interface {
	LoadEmbedding(ctx context.Context, model, key string) ([]float32, error)
	SaveEmbedding(ctx context.Context, model, key string, vec []float32) error
}

// Cache is an Embedder that remembers previous results.
type Cache struct {
	next   Embedder
	model  string
	memory *cache.Cache
	store  Store
	logger *zap.Logger
}

// Options configures a Cache.
type Options struct {
	// Model namespaces keys so vectors of different models never mix.
	Model string
	TTL   time.Duration
	Store Store
}

// New wraps next.
func New(next Embedder, opts Options, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.Model == "" {
		opts.Model = defaultModelID
	}

	return &Cache{
		next:   next,
		model:  opts.Model,
		memory: cache.New(opts.TTL, cleanupPeriod),
		store:  opts.Store,
		logger: logger,
	}
}

// Embed returns the cached vector for text, computing and storing it on a
// miss. Store failures are logged and do not fail the call.
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := Key(text)

	if x, found := c.memory.Get(key); found {
		return slices.Clone(x.([]float32)), nil
	}

	if c.store != nil {
		vec, err := c.store.LoadEmbedding(ctx, c.model, key)
		switch {
		case err == nil:
			c.memory.Set(key, vec, cache.DefaultExpiration)
			return slices.Clone(vec), nil
		case !errors.Is(err, storage.ErrNotFound):
			c.logger.Warn("embedding store lookup failed", zap.String("key", key), zap.Error(err))
		}
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return vec, nil
	}

	c.memory.Set(key, slices.Clone(vec), cache.DefaultExpiration)
	if c.store != nil {
		if err := c.store.SaveEmbedding(ctx, c.model, key, vec); err != nil {
			c.logger.Warn("embedding store write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return vec, nil
}

// Len returns the number of vectors held in memory.
func (c *Cache) Len() int {
	return c.memory.ItemCount()
}

// Key returns the cache key of text.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
