package retriever

import (
	"context"
	"fmt"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/clipdex/clipdex/internal/embedding"
	"github.com/clipdex/clipdex/internal/index"
	"github.com/clipdex/clipdex/internal/model"
)

// maxRelatedConcepts caps the concept side of any fused result set.
const maxRelatedConcepts = 3

// CorpusProvider hands the retriever read-only corpus snapshots, taken once
// per build.
type CorpusProvider interface {
	Images(ctx context.Context) ([]model.ImageRecord, error)
	Concepts(ctx context.Context) ([]model.ConceptRecord, error)
}

// Retriever is the engine façade: it initializes the index manager from the
// corpus, runs the image and text search paths with threshold filtering and
// per-type fusion, and assembles the context handed to generation.
//
// Initialization is one-way. Search operations initialize on first use; an
// explicit Initialize when already initialized is a no-op. Searches take a
// read lock and rebuilds the write lock, which serializes builds against
// in-flight searches.
type Retriever struct {
	embedder *embedding.Embedder
	manager  *index.Manager
	corpus   CorpusProvider
	topK     int
	minSim   float32

	mu          sync.RWMutex
	initialized bool
}

func New(embedder *embedding.Embedder, manager *index.Manager, corpus CorpusProvider, topK int, minSim float32) *Retriever {
	return &Retriever{
		embedder: embedder,
		manager:  manager,
		corpus:   corpus,
		topK:     topK,
		minSim:   minSim,
	}
}

// Initialize loads or builds both indices from a fresh corpus snapshot.
func (r *Retriever) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initLocked(ctx)
}

func (r *Retriever) initLocked(ctx context.Context) error {
	if r.initialized {
		return nil
	}
	images, err := r.corpus.Images(ctx)
	if err != nil {
		return fmt.Errorf("load image corpus: %w", err)
	}
	concepts, err := r.corpus.Concepts(ctx)
	if err != nil {
		return fmt.Errorf("load concept corpus: %w", err)
	}
	if err := r.manager.LoadOrBuild(ctx, images, concepts); err != nil {
		return fmt.Errorf("init indices: %w", err)
	}
	r.initialized = true
	logutil.GetLogger(ctx).Info("retriever initialized",
		zap.Int("images", len(images)),
		zap.Int("concepts", len(concepts)),
	)
	return nil
}

func (r *Retriever) ensureInitialized(ctx context.Context) error {
	r.mu.RLock()
	ok := r.initialized
	r.mu.RUnlock()
	if ok {
		return nil
	}
	return r.Initialize(ctx)
}

// Rebuild replaces both indices from a fresh corpus snapshot while holding
// the write lock, so no search observes a half-built index.
func (r *Retriever) Rebuild(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	images, err := r.corpus.Images(ctx)
	if err != nil {
		return fmt.Errorf("load image corpus: %w", err)
	}
	concepts, err := r.corpus.Concepts(ctx)
	if err != nil {
		return fmt.Errorf("load concept corpus: %w", err)
	}
	if err := r.manager.Build(ctx, images, concepts); err != nil {
		return fmt.Errorf("rebuild indices: %w", err)
	}
	if err := r.manager.Save(ctx); err != nil {
		return fmt.Errorf("save rebuilt indices: %w", err)
	}
	r.initialized = true
	return nil
}

// Status reports whether the engine is initialized alongside the current
// index sizes.
func (r *Retriever) Status() (initialized bool, imageCount int, textCount int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	imageCount, textCount = r.manager.Counts()
	return r.initialized, imageCount, textCount
}

// SearchByImage embeds the query image, pulls the top k from the image
// index plus the top k from the unified text index, and keeps only the
// concept-tagged text hits (capped) as related concepts.
func (r *Retriever) SearchByImage(ctx context.Context, ref embedding.ImageRef, k int) (*model.ImageQueryResult, error) {
	if err := r.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = r.topK
	}
	vec, err := r.embedder.EncodeImage(ctx, ref)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	imageHits, err := r.manager.SearchImages(vec, k)
	if err != nil {
		return nil, fmt.Errorf("image index search: %w", err)
	}
	textHits, err := r.manager.SearchTexts(vec, k)
	if err != nil {
		return nil, fmt.Errorf("text index search: %w", err)
	}

	similarImages := filterByScore(imageHits, r.minSim, "")
	concepts := filterByScore(textHits, r.minSim, model.EntryTypeConcept)
	total := len(similarImages) + len(concepts)
	logutil.GetLogger(ctx).Debug("image query fused",
		zap.Int("similar_images", len(similarImages)),
		zap.Int("related_concepts", len(concepts)),
	)
	return &model.ImageQueryResult{
		SimilarImages:   similarImages,
		RelatedConcepts: capEntries(concepts, maxRelatedConcepts),
		TotalResults:    total,
	}, nil
}

// SearchByText embeds the query, pulls 2k candidates from the unified text
// index and partitions the surviving hits by type tag: images capped at k,
// concepts capped at the fusion limit.
func (r *Retriever) SearchByText(ctx context.Context, query string, k int) (*model.TextQueryResult, error) {
	if err := r.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = r.topK
	}
	vec, err := r.embedder.EncodeText(ctx, query)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	hits, err := r.manager.SearchTexts(vec, 2*k)
	if err != nil {
		return nil, fmt.Errorf("text index search: %w", err)
	}

	var images, concepts []model.ScoredEntry
	for _, hit := range hits {
		if hit.Similarity < r.minSim {
			continue
		}
		switch hit.Type {
		case model.EntryTypeImage:
			images = append(images, hit)
		case model.EntryTypeConcept:
			concepts = append(concepts, hit)
		}
	}
	images = capEntries(images, k)
	concepts = capEntries(concepts, maxRelatedConcepts)
	return &model.TextQueryResult{
		Query:           query,
		RelatedImages:   images,
		RelatedConcepts: concepts,
		TotalResults:    len(images) + len(concepts),
	}, nil
}

// filterByScore keeps hits at or above the threshold, and when wantType is
// set, only those with a matching type tag.
func filterByScore(hits []model.ScoredEntry, minSim float32, wantType string) []model.ScoredEntry {
	var kept []model.ScoredEntry
	for _, hit := range hits {
		if hit.Similarity < minSim {
			continue
		}
		if wantType != "" && hit.Type != wantType {
			continue
		}
		kept = append(kept, hit)
	}
	return kept
}

func capEntries(entries []model.ScoredEntry, limit int) []model.ScoredEntry {
	if len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
