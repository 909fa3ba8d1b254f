package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/clipdex/clipdex/internal/ai"
	"github.com/clipdex/clipdex/internal/embedcache"
	appErr "github.com/clipdex/clipdex/internal/pkg/errors"
)

type state int

const (
	stateUninitialized state = iota
	stateReady
)

// Embedder wraps the multimodal embedding provider with unit normalization
// and the content-addressed cache. The provider model is warmed lazily, at
// most once per process; encode calls block until it is ready.
type Embedder struct {
	provider ai.IEmbedProvider
	model    string
	cache    embedcache.Store
	dim      int

	mu sync.Mutex
	st state
}

func New(provider ai.IEmbedProvider, model string, cache embedcache.Store, dim int) *Embedder {
	return &Embedder{
		provider: provider,
		model:    model,
		cache:    cache,
		dim:      dim,
	}
}

func (e *Embedder) ModelName() string {
	return e.model
}

func (e *Embedder) Dim() int {
	return e.dim
}

func (e *Embedder) ensureReady(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == stateReady {
		return nil
	}
	logutil.GetLogger(ctx).Info("warming embedding model", zap.String("model", e.model))
	if err := e.provider.Warm(ctx); err != nil {
		return fmt.Errorf("%w: %s: %v", appErr.ErrModelInit, e.model, err)
	}
	e.st = stateReady
	logutil.GetLogger(ctx).Info("embedding model ready", zap.String("model", e.model))
	return nil
}

// EncodeText returns the unit-normalized embedding of text, consulting the
// cache by sha256 of the UTF-8 bytes before touching the model.
func (e *Embedder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	if err := e.ensureReady(ctx); err != nil {
		return nil, err
	}
	hash := contentHash([]byte(text))
	if cached, ok := e.cacheGet(ctx, hash); ok {
		return cached, nil
	}
	raw, err := e.provider.EmbedText(ctx, e.model, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	vec, err := e.finish(raw)
	if err != nil {
		return nil, err
	}
	e.cachePut(ctx, hash, vec)
	return vec, nil
}

// EncodeTextBatch embeds texts in fixed-size chunks, normalizing each row
// independently. The batch path feeds bulk index construction and skips the
// single-item cache.
func (e *Embedder) EncodeTextBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if err := e.ensureReady(ctx); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = 32
	}
	rows := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		chunk, err := e.provider.EmbedTextBatch(ctx, e.model, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed text batch [%d:%d]: %w", start, end, err)
		}
		for _, raw := range chunk {
			vec, err := e.finish(raw)
			if err != nil {
				return nil, err
			}
			rows = append(rows, vec)
		}
	}
	return rows, nil
}

// EncodeImage embeds an image given directly or by locator. The image is
// converted to a canonical truecolor PNG before hashing and encoding, so
// format variants of identical pixels share one cache entry. Fetch and
// decode failures surface immediately and are never cached.
func (e *Embedder) EncodeImage(ctx context.Context, ref ImageRef) ([]float32, error) {
	if err := e.ensureReady(ctx); err != nil {
		return nil, err
	}
	img, err := ref.resolve(ctx)
	if err != nil {
		return nil, err
	}
	png, err := canonicalPNG(img)
	if err != nil {
		return nil, err
	}
	hash := contentHash(png)
	if cached, ok := e.cacheGet(ctx, hash); ok {
		return cached, nil
	}
	raw, err := e.provider.EmbedImage(ctx, e.model, png)
	if err != nil {
		return nil, fmt.Errorf("embed image: %w", err)
	}
	vec, err := e.finish(raw)
	if err != nil {
		return nil, err
	}
	e.cachePut(ctx, hash, vec)
	return vec, nil
}

func (e *Embedder) finish(raw []float32) ([]float32, error) {
	if e.dim > 0 && len(raw) != e.dim {
		return nil, fmt.Errorf("model %s returned %d-dim embedding, want %d", e.model, len(raw), e.dim)
	}
	return Normalize(raw)
}

func (e *Embedder) cacheGet(ctx context.Context, hash string) ([]float32, bool) {
	if e.cache == nil {
		return nil, false
	}
	values, ok, err := e.cache.Get(ctx, hash)
	if err != nil {
		// Cache I/O never fails an encode, a broken entry is just a miss.
		logutil.GetLogger(ctx).Warn("embedding cache read failed", zap.String("hash", hash), zap.Error(err))
		return nil, false
	}
	if ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit", zap.String("hash", hash))
	}
	return values, ok
}

func (e *Embedder) cachePut(ctx context.Context, hash string, values []float32) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Put(ctx, hash, values); err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.String("hash", hash), zap.Error(err))
	}
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
