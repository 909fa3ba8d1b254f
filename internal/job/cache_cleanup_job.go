package job

import (
	"context"
	"time"

	"github.com/clipdex/clipdex/internal/embedcache"
)

type CacheCleanupJob struct {
	pruner     embedcache.Pruner
	maxAgeDays int
}

func NewCacheCleanupJob(pruner embedcache.Pruner, maxAgeDays int) *CacheCleanupJob {
	return &CacheCleanupJob{pruner: pruner, maxAgeDays: maxAgeDays}
}

func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

func (j *CacheCleanupJob) Run(ctx context.Context) error {
	if j.pruner == nil {
		return nil
	}
	maxAgeDays := j.maxAgeDays
	if maxAgeDays <= 0 {
		maxAgeDays = 30
	}
	cutoff := time.Now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour).Unix()
	_, err := j.pruner.DeleteBefore(ctx, cutoff)
	return err
}
