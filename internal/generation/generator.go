package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/clipdex/clipdex/internal/ai"
	"github.com/clipdex/clipdex/internal/model"
	appErr "github.com/clipdex/clipdex/internal/pkg/errors"
)

// Generator turns a query and its retrieved context into a natural-language
// answer. It never runs on an empty context; the retriever guarantees that,
// and the generator enforces it again at its own boundary.
type Generator struct {
	gen     ai.IGenerator
	timeout time.Duration
}

func New(gen ai.IGenerator, timeout time.Duration) *Generator {
	return &Generator{gen: gen, timeout: timeout}
}

func (g *Generator) Answer(ctx context.Context, query string, retrieved string, queryType string) (string, error) {
	if g.gen == nil {
		return "", fmt.Errorf("generator not configured: %w", ai.ErrUnavailable)
	}
	if strings.TrimSpace(retrieved) == "" {
		return "", fmt.Errorf("generation refused: %w", appErr.ErrEmptyContext)
	}
	prompt := buildPrompt(query, retrieved, queryType)
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	logutil.GetLogger(ctx).Info("generating answer", zap.String("query_type", queryType), zap.Int("context_len", len(retrieved)))
	resp, err := g.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	answer := strings.TrimSpace(resp)
	if answer == "" {
		return "", fmt.Errorf("generator returned empty answer")
	}
	return answer, nil
}

func buildPrompt(query string, retrieved string, queryType string) string {
	if queryType == model.QueryTypeImage {
		return fmt.Sprintf(`Role: assistant specialized in visual analysis and multimodal information synthesis.

Goal: explain what the query image shows, using the similar images and related concepts retrieved from the corpus.

Retrieved context:
%s

Instructions:
- Start by identifying what the image most likely shows.
- Ground every statement in the retrieved context; do not invent facts.
- Mention relevant visual elements that recur across the similar images.
- Include concept definitions from the context where they help.
- Focus on the single most relevant concept when several appear.
- If the context is insufficient, answer exactly: "No relevant information found in the corpus."

Analysis:`, retrieved)
	}
	return fmt.Sprintf(`Role: assistant specialized in multimodal information retrieval.

Goal: answer the user's query using the related images and concept definitions retrieved from the corpus.

User query: %s

Retrieved context:
%s

Instructions:
- Answer the query directly.
- Ground every statement in the retrieved context; do not invent facts.
- Use the related image descriptions to enrich the answer.
- Include concept definitions from the context where they help.
- Focus on the single most relevant concept when several appear.
- If the context is insufficient, answer exactly: "No relevant information found in the corpus."

Answer:`, query, retrieved)
}
