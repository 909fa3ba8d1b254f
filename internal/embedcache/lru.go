package embedcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
)

// WrapLRU puts an in-process expiring LRU in front of a durable store so hot
// content skips the database round trip.
func WrapLRU(next Store, size int, ttl time.Duration) Store {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &lruStore{
		next:  next,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruStore struct {
	next  Store
	cache *expirable.LRU[string, []float32]
}

func (l *lruStore) Get(ctx context.Context, hash string) ([]float32, bool, error) {
	if cached, ok := l.cache.Get(hash); ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (lru)")
		return cloneEmbedding(cached), true, nil
	}
	values, ok, err := l.next.Get(ctx, hash)
	if err != nil || !ok {
		return nil, false, err
	}
	l.cache.Add(hash, cloneEmbedding(values))
	return values, true, nil
}

func (l *lruStore) Put(ctx context.Context, hash string, embedding []float32) error {
	l.cache.Add(hash, cloneEmbedding(embedding))
	return l.next.Put(ctx, hash, embedding)
}
