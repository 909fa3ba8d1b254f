package embedding

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/clipdex/clipdex/internal/pkg/errors"
)

type fakeProvider struct {
	warmErr    error
	warmCalls  int
	textCalls  int
	batchCalls int
	imageCalls int
	textVec    []float32
	imageVec   []float32
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Warm(ctx context.Context) error {
	f.warmCalls++
	return f.warmErr
}

func (f *fakeProvider) EmbedText(ctx context.Context, model string, text string) ([]float32, error) {
	f.textCalls++
	return append([]float32(nil), f.textVec...), nil
}

func (f *fakeProvider) EmbedTextBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	f.batchCalls++
	rows := make([][]float32, 0, len(texts))
	for range texts {
		rows = append(rows, append([]float32(nil), f.textVec...))
	}
	return rows, nil
}

func (f *fakeProvider) EmbedImage(ctx context.Context, model string, png []byte) ([]float32, error) {
	f.imageCalls++
	return append([]float32(nil), f.imageVec...), nil
}

type memCache struct {
	mu    sync.Mutex
	items map[string][]float32
}

func newMemCache() *memCache {
	return &memCache{items: map[string][]float32{}}
}

func (m *memCache) Get(ctx context.Context, hash string) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	values, ok := m.items[hash]
	return values, ok, nil
}

func (m *memCache) Put(ctx context.Context, hash string, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[hash] = append([]float32(nil), embedding...)
	return nil
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestEncodeText_NormalizesToUnitLength(t *testing.T) {
	provider := &fakeProvider{textVec: []float32{3, 4, 0, 0}}
	e := New(provider, "clip-test", newMemCache(), 4)

	vec, err := e.EncodeText(context.Background(), "a dog running")
	require.NoError(t, err)
	require.Len(t, vec, 4)
	require.InDelta(t, 1.0, vectorNorm(vec), 1e-5)
	require.InDelta(t, 0.6, float64(vec[0]), 1e-6)
	require.InDelta(t, 0.8, float64(vec[1]), 1e-6)
}

func TestEncodeText_SecondCallHitsCache(t *testing.T) {
	provider := &fakeProvider{textVec: []float32{1, 0, 0, 0}}
	e := New(provider, "clip-test", newMemCache(), 4)

	first, err := e.EncodeText(context.Background(), "same text")
	require.NoError(t, err)
	second, err := e.EncodeText(context.Background(), "same text")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, provider.textCalls)
}

func TestEncodeText_ZeroVectorRejected(t *testing.T) {
	provider := &fakeProvider{textVec: []float32{0, 0, 0, 0}}
	e := New(provider, "clip-test", newMemCache(), 4)

	_, err := e.EncodeText(context.Background(), "anything")
	require.ErrorIs(t, err, appErr.ErrZeroVector)
}

func TestEncodeText_DimensionMismatchRejected(t *testing.T) {
	provider := &fakeProvider{textVec: []float32{1, 0, 0}}
	e := New(provider, "clip-test", newMemCache(), 4)

	_, err := e.EncodeText(context.Background(), "anything")
	require.Error(t, err)
}

func TestEncodeText_WarmFailureDoesNotStick(t *testing.T) {
	provider := &fakeProvider{textVec: []float32{1, 0, 0, 0}, warmErr: errors.New("model offline")}
	e := New(provider, "clip-test", newMemCache(), 4)

	_, err := e.EncodeText(context.Background(), "hello")
	require.ErrorIs(t, err, appErr.ErrModelInit)

	provider.warmErr = nil
	_, err = e.EncodeText(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, 2, provider.warmCalls)
}

func TestEncodeTextBatch_Chunks(t *testing.T) {
	provider := &fakeProvider{textVec: []float32{0, 2, 0, 0}}
	e := New(provider, "clip-test", newMemCache(), 4)

	rows, err := e.EncodeTextBatch(context.Background(), []string{"a", "b", "c", "d", "e"}, 2)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	require.Equal(t, 3, provider.batchCalls)
	for _, row := range rows {
		require.InDelta(t, 1.0, vectorNorm(row), 1e-5)
	}
}

func TestEncodeImage_FormatVariantsShareOneCacheEntry(t *testing.T) {
	provider := &fakeProvider{imageVec: []float32{0, 0, 5, 0}}
	e := New(provider, "clip-test", newMemCache(), 4)

	red := color.RGBA{R: 255, A: 255}
	rgba := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			rgba.Set(x, y, red)
		}
	}
	paletted := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{red})

	first, err := e.EncodeImage(context.Background(), ImageRef{Image: rgba})
	require.NoError(t, err)
	second, err := e.EncodeImage(context.Background(), ImageRef{Image: paletted})
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, provider.imageCalls)
}

func TestEncodeImage_MissingFileSurfacesFetchError(t *testing.T) {
	provider := &fakeProvider{imageVec: []float32{1, 0, 0, 0}}
	e := New(provider, "clip-test", newMemCache(), 4)

	_, err := e.EncodeImage(context.Background(), ImageRef{Locator: "/nonexistent/picture.jpg"})
	require.ErrorIs(t, err, appErr.ErrFetchImage)
}
