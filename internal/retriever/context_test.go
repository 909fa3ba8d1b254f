package retriever

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clipdex/clipdex/internal/model"
	appErr "github.com/clipdex/clipdex/internal/pkg/errors"
)

func scoredImage(caption string, sim float32) model.ScoredEntry {
	return model.ScoredEntry{
		IndexEntry: model.IndexEntry{Type: model.EntryTypeImage, Caption: caption},
		Similarity: sim,
	}
}

func scoredConcept(word, definition string, sim float32) model.ScoredEntry {
	return model.ScoredEntry{
		IndexEntry: model.IndexEntry{Type: model.EntryTypeConcept, Concept: word, Definition: definition},
		Similarity: sim,
	}
}

func TestContextForGeneration_ImageOutcome(t *testing.T) {
	outcome := &model.ImageQueryResult{
		SimilarImages: []model.ScoredEntry{
			scoredImage("a dog in the park", 0.91234),
			scoredImage("a dog by the lake", 0.8),
		},
		RelatedConcepts: []model.ScoredEntry{
			scoredConcept("dog", "a loyal animal kept as a pet", 0.7),
		},
	}
	text, err := ContextForGeneration(outcome)
	require.NoError(t, err)
	require.Contains(t, text, "=== SIMILAR IMAGES ===")
	require.Contains(t, text, "1. a dog in the park (similarity: 0.912)")
	require.Contains(t, text, "2. a dog by the lake (similarity: 0.800)")
	require.Contains(t, text, "=== RELATED CONCEPTS ===")
	require.Contains(t, text, "1. dog: a loyal animal kept as a pet")
}

func TestContextForGeneration_TextOutcome(t *testing.T) {
	outcome := &model.TextQueryResult{
		Query:         "dog",
		RelatedImages: []model.ScoredEntry{scoredImage("a dog in the park", 0.9)},
	}
	text, err := ContextForGeneration(outcome)
	require.NoError(t, err)
	require.Contains(t, text, "=== RELATED IMAGES ===")
	require.NotContains(t, text, "RELATED CONCEPTS")
}

func TestContextForGeneration_ConceptsOnly(t *testing.T) {
	outcome := &model.TextQueryResult{
		Query:           "dog",
		RelatedConcepts: []model.ScoredEntry{scoredConcept("dog", "a loyal animal", 0.7)},
	}
	text, err := ContextForGeneration(outcome)
	require.NoError(t, err)
	require.True(t, strings.Contains(text, "=== RELATED CONCEPTS ==="))
	require.NotContains(t, text, "RELATED IMAGES")
}

func TestContextForGeneration_Empty(t *testing.T) {
	_, err := ContextForGeneration(&model.ImageQueryResult{})
	require.ErrorIs(t, err, appErr.ErrEmptyContext)

	_, err = ContextForGeneration(&model.TextQueryResult{Query: "dog"})
	require.ErrorIs(t, err, appErr.ErrEmptyContext)
}

func TestContextForGeneration_UnknownOutcome(t *testing.T) {
	_, err := ContextForGeneration(nil)
	require.ErrorIs(t, err, appErr.ErrInvalid)
}
