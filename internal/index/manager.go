package index

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/clipdex/clipdex/internal/embedding"
	"github.com/clipdex/clipdex/internal/filestore"
	"github.com/clipdex/clipdex/internal/model"
	appErr "github.com/clipdex/clipdex/internal/pkg/errors"
)

const (
	imageIndexKey = "image_index.bin"
	imageMetaKey  = "image_meta.json"
	textIndexKey  = "text_index.bin"
	textMetaKey   = "text_meta.json"
)

// Manager owns the image-caption index and the unified text index. In the
// unified index, positions [0, nImages) are image entries and the rest are
// concept entries; captions and definitions share one embedding space so a
// single query embedding is comparable against both, told apart only by the
// entry type tag.
type Manager struct {
	embedder  *embedding.Embedder
	store     filestore.Store
	dim       int
	batchSize int

	imageIndex *Flat
	textIndex  *Flat
}

func NewManager(embedder *embedding.Embedder, store filestore.Store, dim int, batchSize int) *Manager {
	return &Manager{
		embedder:  embedder,
		store:     store,
		dim:       dim,
		batchSize: batchSize,
	}
}

// Build embeds the corpus and constructs both indices in place. Only the
// primary caption of each image is embedded; the full caption list rides
// along as metadata. Concepts embed as "word: definition". Not safe to run
// concurrently with Search on the same Manager.
func (m *Manager) Build(ctx context.Context, images []model.ImageRecord, concepts []model.ConceptRecord) error {
	logger := logutil.GetLogger(ctx)

	imageTexts := make([]string, 0, len(images))
	imageEntries := make([]model.IndexEntry, 0, len(images))
	for _, rec := range images {
		entry := model.ImageEntry(rec)
		imageTexts = append(imageTexts, entry.Caption)
		imageEntries = append(imageEntries, entry)
	}
	var imageVectors [][]float32
	if len(imageTexts) > 0 {
		var err error
		imageVectors, err = m.embedder.EncodeTextBatch(ctx, imageTexts, m.batchSize)
		if err != nil {
			return fmt.Errorf("build image embeddings: %w", err)
		}
		logger.Info("image embeddings generated", zap.Int("count", len(imageVectors)))
	}

	conceptTexts := make([]string, 0, len(concepts))
	conceptEntries := make([]model.IndexEntry, 0, len(concepts))
	for _, rec := range concepts {
		conceptTexts = append(conceptTexts, fmt.Sprintf("%s: %s", rec.Word, rec.Definition))
		conceptEntries = append(conceptEntries, model.ConceptEntry(rec))
	}
	var conceptVectors [][]float32
	if len(conceptTexts) > 0 {
		var err error
		conceptVectors, err = m.embedder.EncodeTextBatch(ctx, conceptTexts, m.batchSize)
		if err != nil {
			return fmt.Errorf("build concept embeddings: %w", err)
		}
		logger.Info("concept embeddings generated", zap.Int("count", len(conceptVectors)))
	}

	m.imageIndex = nil
	m.textIndex = nil

	if len(imageVectors) > 0 {
		idx := NewFlat(m.dim)
		if err := idx.Add(imageVectors, imageEntries); err != nil {
			return fmt.Errorf("build image index: %w", err)
		}
		m.imageIndex = idx
		logger.Info("image index built", zap.Int("vectors", idx.Len()))
	}

	// Image vectors first, then concept vectors. The ordering is what keeps
	// metadata ordinal-aligned across the concatenation.
	textVectors := make([][]float32, 0, len(imageVectors)+len(conceptVectors))
	textEntries := make([]model.IndexEntry, 0, len(imageEntries)+len(conceptEntries))
	textVectors = append(textVectors, imageVectors...)
	textVectors = append(textVectors, conceptVectors...)
	textEntries = append(textEntries, imageEntries...)
	textEntries = append(textEntries, conceptEntries...)
	if len(textVectors) > 0 {
		idx := NewFlat(m.dim)
		if err := idx.Add(textVectors, textEntries); err != nil {
			return fmt.Errorf("build text index: %w", err)
		}
		m.textIndex = idx
		logger.Info("text index built", zap.Int("vectors", idx.Len()))
	}
	return nil
}

// LoadOrBuild restores both indices from the store, falling back to a full
// Build followed by Save when either half cannot be reconstructed.
func (m *Manager) LoadOrBuild(ctx context.Context, images []model.ImageRecord, concepts []model.ConceptRecord) error {
	if m.Load(ctx) {
		logutil.GetLogger(ctx).Info("indices loaded from store",
			zap.Int("image_vectors", m.imageIndex.Len()),
			zap.Int("text_vectors", m.textIndex.Len()),
		)
		return nil
	}
	logutil.GetLogger(ctx).Info("building indices from corpus",
		zap.Int("images", len(images)),
		zap.Int("concepts", len(concepts)),
	)
	if err := m.Build(ctx, images, concepts); err != nil {
		return err
	}
	if err := m.Save(ctx); err != nil {
		return fmt.Errorf("save indices: %w", err)
	}
	return nil
}

// Save persists both indices: a binary vector file plus a JSON metadata
// sidecar each.
func (m *Manager) Save(ctx context.Context) error {
	if err := m.saveIndex(ctx, m.imageIndex, imageIndexKey, imageMetaKey); err != nil {
		return fmt.Errorf("save image index: %w", err)
	}
	if err := m.saveIndex(ctx, m.textIndex, textIndexKey, textMetaKey); err != nil {
		return fmt.Errorf("save text index: %w", err)
	}
	return nil
}

func (m *Manager) saveIndex(ctx context.Context, idx *Flat, indexKey, metaKey string) error {
	if idx == nil {
		return nil
	}
	vecData, err := encodeVectors(idx.dim, idx.vectors)
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, indexKey, bytes.NewReader(vecData)); err != nil {
		return err
	}
	metaData, err := encodeMetadata(idx.entries)
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, metaKey, bytes.NewReader(metaData)); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("index saved", zap.String("key", indexKey), zap.Int("vectors", idx.Len()))
	return nil
}

// Load reports whether both indices were fully reconstructed. Any missing
// or inconsistent half leaves the manager untouched so the caller rebuilds.
func (m *Manager) Load(ctx context.Context) bool {
	imageIndex, err := m.loadIndex(ctx, imageIndexKey, imageMetaKey)
	if err != nil {
		logutil.GetLogger(ctx).Warn("image index not loadable", zap.Error(err))
		return false
	}
	textIndex, err := m.loadIndex(ctx, textIndexKey, textMetaKey)
	if err != nil {
		logutil.GetLogger(ctx).Warn("text index not loadable", zap.Error(err))
		return false
	}
	m.imageIndex = imageIndex
	m.textIndex = textIndex
	return true
}

func (m *Manager) loadIndex(ctx context.Context, indexKey, metaKey string) (*Flat, error) {
	vecReader, err := m.store.Open(ctx, indexKey)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", indexKey, err)
	}
	defer vecReader.Close()
	dim, vectors, err := decodeVectors(vecReader)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", indexKey, err)
	}
	if dim != m.dim {
		return nil, fmt.Errorf("%s has dim %d, configured %d", indexKey, dim, m.dim)
	}
	metaReader, err := m.store.Open(ctx, metaKey)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", metaKey, err)
	}
	defer metaReader.Close()
	entries, err := decodeMetadata(metaReader)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", metaKey, err)
	}
	if len(entries) != len(vectors) {
		return nil, fmt.Errorf("%s holds %d entries for %d vectors", metaKey, len(entries), len(vectors))
	}
	idx := NewFlat(m.dim)
	if err := idx.Add(vectors, entries); err != nil {
		return nil, err
	}
	return idx, nil
}

// SearchImages queries the image-caption index.
func (m *Manager) SearchImages(query []float32, k int) ([]model.ScoredEntry, error) {
	if m.imageIndex == nil {
		return nil, fmt.Errorf("image index: %w", appErr.ErrNotInitialized)
	}
	return m.imageIndex.Search(query, k)
}

// SearchTexts queries the unified text index.
func (m *Manager) SearchTexts(query []float32, k int) ([]model.ScoredEntry, error) {
	if m.textIndex == nil {
		return nil, fmt.Errorf("text index: %w", appErr.ErrNotInitialized)
	}
	return m.textIndex.Search(query, k)
}

// Counts returns the vector counts of the image and text indices.
func (m *Manager) Counts() (int, int) {
	var images, texts int
	if m.imageIndex != nil {
		images = m.imageIndex.Len()
	}
	if m.textIndex != nil {
		texts = m.textIndex.Len()
	}
	return images, texts
}
