package retriever

import (
	"fmt"
	"strings"

	"github.com/clipdex/clipdex/internal/model"
	appErr "github.com/clipdex/clipdex/internal/pkg/errors"
)

// ContextForGeneration renders a search outcome into the section-labeled
// plain-text block handed to the answer generator. An outcome with no
// entries at all yields ErrEmptyContext: generation must never run on a
// blank context, and "nothing found" is not a fault.
func ContextForGeneration(outcome model.SearchOutcome) (string, error) {
	var parts []string
	switch res := outcome.(type) {
	case *model.ImageQueryResult:
		parts = appendImageSection(parts, "=== SIMILAR IMAGES ===", res.SimilarImages)
		parts = appendConceptSection(parts, res.RelatedConcepts)
	case *model.TextQueryResult:
		parts = appendImageSection(parts, "=== RELATED IMAGES ===", res.RelatedImages)
		parts = appendConceptSection(parts, res.RelatedConcepts)
	default:
		return "", fmt.Errorf("unknown search outcome %T: %w", outcome, appErr.ErrInvalid)
	}
	if len(parts) == 0 {
		return "", appErr.ErrEmptyContext
	}
	return strings.Join(parts, "\n"), nil
}

func appendImageSection(parts []string, header string, images []model.ScoredEntry) []string {
	if len(images) == 0 {
		return parts
	}
	parts = append(parts, header)
	for i, img := range images {
		parts = append(parts, fmt.Sprintf("%d. %s (similarity: %.3f)", i+1, img.Caption, img.Similarity))
	}
	return parts
}

func appendConceptSection(parts []string, concepts []model.ScoredEntry) []string {
	if len(concepts) == 0 {
		return parts
	}
	parts = append(parts, "\n=== RELATED CONCEPTS ===")
	for i, concept := range concepts {
		parts = append(parts, fmt.Sprintf("%d. %s: %s", i+1, concept.Concept, concept.Definition))
	}
	return parts
}
