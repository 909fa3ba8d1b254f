package model

const (
	QueryTypeImage = "image"
	QueryTypeText  = "text"
)

// ScoredEntry is one search hit: an index entry plus its cosine similarity
// to the query, in [-1, 1]. The entry is embedded so its fields marshal
// flat next to the score.
type ScoredEntry struct {
	IndexEntry
	Similarity float32 `json:"similarity"`
}

// SearchOutcome is the tagged union of the two query result shapes. Every
// field of either variant is statically present; the tag comes from
// QueryType.
type SearchOutcome interface {
	QueryType() string
}

type ImageQueryResult struct {
	SimilarImages   []ScoredEntry `json:"similar_images"`
	RelatedConcepts []ScoredEntry `json:"related_concepts"`
	TotalResults    int           `json:"total_results"`
}

func (ImageQueryResult) QueryType() string {
	return QueryTypeImage
}

type TextQueryResult struct {
	Query           string        `json:"query"`
	RelatedImages   []ScoredEntry `json:"related_images"`
	RelatedConcepts []ScoredEntry `json:"related_concepts"`
	TotalResults    int           `json:"total_results"`
}

func (TextQueryResult) QueryType() string {
	return QueryTypeText
}
