package embedcache

import (
	"context"
	"fmt"
	"strings"

	"github.com/clipdex/clipdex/internal/config"
)

// Store is the content-addressed embedding cache. Entries are created on
// first encode of a given content hash and only ever read after that; the
// cache itself never evicts, that is a maintenance-job concern.
type Store interface {
	Get(ctx context.Context, hash string) ([]float32, bool, error)
	Put(ctx context.Context, hash string, embedding []float32) error
}

// Pruner is implemented by durable backends that support age-based cleanup.
type Pruner interface {
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
}

type Factory func(cfg config.CacheConfig, modelName string) (Store, error)

var registry = map[string]Factory{}

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func New(cfg config.CacheConfig, modelName string) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if key == "" {
		return nil, fmt.Errorf("cache.backend is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
	return factory(cfg, modelName)
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
