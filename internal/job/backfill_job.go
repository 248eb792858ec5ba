package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/teamgrid/ragengine/internal/service"
)

// BackfillJob repairs records that were stored without an embedding, e.g.
// when the provider was down during indexing.
type BackfillJob struct {
	indexing  *service.IndexingService
	batchSize int
}

func NewBackfillJob(indexing *service.IndexingService, batchSize int) *BackfillJob {
	return &BackfillJob{indexing: indexing, batchSize: batchSize}
}

func (j *BackfillJob) Name() string {
	return "embedding_backfill"
}

func (j *BackfillJob) Run(ctx context.Context) error {
	if j.indexing == nil {
		return nil
	}
	repaired, err := j.indexing.Backfill(ctx, j.batchSize)
	if err != nil {
		return err
	}
	if repaired > 0 {
		logutil.GetLogger(ctx).Info("backfilled embeddings", zap.Int("repaired", repaired))
	}
	return nil
}
