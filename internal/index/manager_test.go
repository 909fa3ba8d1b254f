package index

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clipdex/clipdex/internal/config"
	"github.com/clipdex/clipdex/internal/embedding"
	"github.com/clipdex/clipdex/internal/filestore"
	"github.com/clipdex/clipdex/internal/model"
	appErr "github.com/clipdex/clipdex/internal/pkg/errors"
)

// stubProvider returns a fixed vector per input text.
type stubProvider struct {
	vectors map[string][]float32
}

func (s *stubProvider) Name() string                   { return "stub" }
func (s *stubProvider) Warm(ctx context.Context) error { return nil }

func (s *stubProvider) EmbedText(ctx context.Context, model string, text string) ([]float32, error) {
	vec, ok := s.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no stub vector for %q", text)
	}
	return append([]float32(nil), vec...), nil
}

func (s *stubProvider) EmbedTextBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	rows := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := s.EmbedText(ctx, model, text)
		if err != nil {
			return nil, err
		}
		rows = append(rows, vec)
	}
	return rows, nil
}

func (s *stubProvider) EmbedImage(ctx context.Context, model string, png []byte) ([]float32, error) {
	return nil, fmt.Errorf("stub has no image vectors")
}

func testManager(t *testing.T, dir string) *Manager {
	t.Helper()
	provider := &stubProvider{vectors: map[string][]float32{
		"a dog in the park":  {1, 0},
		"a cat on the sofa":  {0, 1},
		"dog: a loyal animal kept as a pet": {0.6, 0.8},
	}}
	embedder := embedding.New(provider, "stub-model", nil, 2)
	store, err := filestore.New(config.IndexStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": dir},
	})
	require.NoError(t, err)
	return NewManager(embedder, store, 2, 8)
}

func testCorpus() ([]model.ImageRecord, []model.ConceptRecord) {
	images := []model.ImageRecord{
		{Filename: "dog.jpg", Captions: []string{"a dog in the park"}, URL: "/img/dog.jpg"},
		{Filename: "cat.jpg", Captions: []string{"a cat on the sofa"}, URL: "/img/cat.jpg"},
	}
	concepts := []model.ConceptRecord{
		{Word: "dog", Definition: "a loyal animal kept as a pet", Category: "english_word"},
	}
	return images, concepts
}

func TestManagerBuild_UnifiedTextIndexOrder(t *testing.T) {
	m := testManager(t, t.TempDir())
	images, concepts := testCorpus()
	require.NoError(t, m.Build(context.Background(), images, concepts))

	imageCount, textCount := m.Counts()
	require.Equal(t, 2, imageCount)
	require.Equal(t, 3, textCount)

	entries := m.textIndex.Entries()
	require.Equal(t, model.EntryTypeImage, entries[0].Type)
	require.Equal(t, model.EntryTypeImage, entries[1].Type)
	require.Equal(t, model.EntryTypeConcept, entries[2].Type)
	require.Equal(t, "dog", entries[2].Concept)
}

func TestManagerSearch_BeforeBuild(t *testing.T) {
	m := testManager(t, t.TempDir())
	_, err := m.SearchImages([]float32{1, 0}, 1)
	require.ErrorIs(t, err, appErr.ErrNotInitialized)
	_, err = m.SearchTexts([]float32{1, 0}, 1)
	require.ErrorIs(t, err, appErr.ErrNotInitialized)
}

func TestManagerSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := testManager(t, dir)
	images, concepts := testCorpus()
	require.NoError(t, m.Build(context.Background(), images, concepts))
	require.NoError(t, m.Save(context.Background()))

	query := []float32{1, 0}
	before, err := m.SearchTexts(query, 3)
	require.NoError(t, err)

	restored := testManager(t, dir)
	require.True(t, restored.Load(context.Background()))
	after, err := restored.SearchTexts(query, 3)
	require.NoError(t, err)

	require.Len(t, after, len(before))
	for i := range before {
		require.Equal(t, before[i].IndexEntry, after[i].IndexEntry)
		require.InDelta(t, float64(before[i].Similarity), float64(after[i].Similarity), 1e-6)
	}
}

func TestManagerLoad_MissingArtifacts(t *testing.T) {
	m := testManager(t, t.TempDir())
	require.False(t, m.Load(context.Background()))
}

func TestManagerLoadOrBuild_FallsBackToBuild(t *testing.T) {
	dir := t.TempDir()
	m := testManager(t, dir)
	images, concepts := testCorpus()
	require.NoError(t, m.LoadOrBuild(context.Background(), images, concepts))

	// The fallback build must have saved, so a fresh manager loads.
	restored := testManager(t, dir)
	require.True(t, restored.Load(context.Background()))
	imageCount, textCount := restored.Counts()
	require.Equal(t, 2, imageCount)
	require.Equal(t, 3, textCount)
}

func TestManagerBuild_EmptyConceptSide(t *testing.T) {
	m := testManager(t, t.TempDir())
	images, _ := testCorpus()
	require.NoError(t, m.Build(context.Background(), images, nil))

	imageCount, textCount := m.Counts()
	require.Equal(t, 2, imageCount)
	require.Equal(t, 2, textCount)
}
