package job

import (
	"context"

	"github.com/clipdex/clipdex/internal/retriever"
)

type IndexRebuildJob struct {
	retriever *retriever.Retriever
}

func NewIndexRebuildJob(r *retriever.Retriever) *IndexRebuildJob {
	return &IndexRebuildJob{retriever: r}
}

func (j *IndexRebuildJob) Name() string {
	return "index_rebuild"
}

func (j *IndexRebuildJob) Run(ctx context.Context) error {
	if j.retriever == nil {
		return nil
	}
	return j.retriever.Rebuild(ctx)
}
