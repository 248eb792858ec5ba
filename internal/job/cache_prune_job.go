package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/teamgrid/ragengine/internal/embedcache"
)

// CachePruneJob drops embedding cache rows that have not been refreshed
// within the retention window.
type CachePruneJob struct {
	repo      *embedcache.CacheRepo
	retention time.Duration
}

func NewCachePruneJob(repo *embedcache.CacheRepo, retention time.Duration) *CachePruneJob {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &CachePruneJob{repo: repo, retention: retention}
}

func (j *CachePruneJob) Name() string {
	return "embedding_cache_prune"
}

func (j *CachePruneJob) Run(ctx context.Context) error {
	if j.repo == nil {
		return nil
	}
	cutoff := time.Now().Add(-j.retention).Unix()
	deleted, err := j.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logutil.GetLogger(ctx).Info("pruned embedding cache", zap.Int64("deleted", deleted))
	}
	return nil
}
