package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUnavailable = errors.New("ai provider unavailable")

// IEmbedProvider produces raw (not yet normalized) embedding vectors for
// text and canonical PNG image bytes. Warm loads or checks the underlying
// model; it is called once by the embedder before first use.
type IEmbedProvider interface {
	Name() string
	Warm(ctx context.Context) error
	EmbedText(ctx context.Context, model string, text string) ([]float32, error)
	EmbedTextBatch(ctx context.Context, model string, texts []string) ([][]float32, error)
	EmbedImage(ctx context.Context, model string, png []byte) ([]float32, error)
}

type IGenProvider interface {
	Name() string
	Generate(ctx context.Context, model string, prompt string) (string, error)
}

// IGenerator is a generation provider bound to one model.
type IGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type generator struct {
	provider IGenProvider
	model    string
}

func NewGenerator(p IGenProvider, model string) IGenerator {
	return &generator{provider: p, model: model}
}

func (g *generator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.provider.Generate(ctx, g.model, prompt)
}

type EmbedFactory func(args interface{}) (IEmbedProvider, error)

type GenFactory func(args interface{}) (IGenProvider, error)

var (
	embedRegistry = map[string]EmbedFactory{}
	genRegistry   = map[string]GenFactory{}
)

func RegisterEmbed(name string, factory EmbedFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	embedRegistry[key] = factory
}

func Register(name string, factory GenFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	genRegistry[key] = factory
}

func NewEmbedProvider(name string, args interface{}) (IEmbedProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.embed_provider is required")
	}
	factory := embedRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported embed provider: %s", name)
	}
	return factory(args)
}

func NewProvider(name string, args interface{}) (IGenProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := genRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
