package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/clipdex/clipdex/internal/embedding"
	"github.com/clipdex/clipdex/internal/generation"
	"github.com/clipdex/clipdex/internal/model"
	appErr "github.com/clipdex/clipdex/internal/pkg/errors"
	"github.com/clipdex/clipdex/internal/retriever"
)

// maxTopK bounds caller-supplied result sizes.
const maxTopK = 50

type AskResult struct {
	Query     string              `json:"query,omitempty"`
	QueryType string              `json:"query_type"`
	Answer    string              `json:"answer"`
	Results   model.SearchOutcome `json:"results"`
}

type EngineStatus struct {
	Initialized bool `json:"initialized"`
	ImageCount  int  `json:"image_count"`
	TextCount   int  `json:"text_count"`
	TopK        int  `json:"top_k"`
}

type SearchService struct {
	retriever *retriever.Retriever
	generator *generation.Generator
	topK      int
}

func NewSearchService(r *retriever.Retriever, g *generation.Generator, topK int) *SearchService {
	return &SearchService{
		retriever: r,
		generator: g,
		topK:      topK,
	}
}

func (s *SearchService) clampK(k int) int {
	if k <= 0 {
		return s.topK
	}
	if k > maxTopK {
		return maxTopK
	}
	return k
}

func (s *SearchService) SearchText(ctx context.Context, query string, k int) (*model.TextQueryResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query: %w", appErr.ErrInvalid)
	}
	return s.retriever.SearchByText(ctx, query, s.clampK(k))
}

func (s *SearchService) SearchImage(ctx context.Context, ref embedding.ImageRef, k int) (*model.ImageQueryResult, error) {
	return s.retriever.SearchByImage(ctx, ref, s.clampK(k))
}

// AskText answers a text query grounded in the retrieved context. An empty
// context surfaces as ErrEmptyContext rather than an invented answer.
func (s *SearchService) AskText(ctx context.Context, query string, k int) (*AskResult, error) {
	result, err := s.SearchText(ctx, query, k)
	if err != nil {
		return nil, err
	}
	retrieved, err := retriever.ContextForGeneration(result)
	if err != nil {
		return nil, err
	}
	answer, err := s.generator.Answer(ctx, query, retrieved, model.QueryTypeText)
	if err != nil {
		logutil.GetLogger(ctx).Error("text answer generation failed", zap.Error(err))
		return nil, err
	}
	return &AskResult{
		Query:     query,
		QueryType: model.QueryTypeText,
		Answer:    answer,
		Results:   result,
	}, nil
}

// AskImage explains a query image grounded in the retrieved context.
func (s *SearchService) AskImage(ctx context.Context, ref embedding.ImageRef, query string, k int) (*AskResult, error) {
	result, err := s.SearchImage(ctx, ref, k)
	if err != nil {
		return nil, err
	}
	retrieved, err := retriever.ContextForGeneration(result)
	if err != nil {
		return nil, err
	}
	answer, err := s.generator.Answer(ctx, query, retrieved, model.QueryTypeImage)
	if err != nil {
		logutil.GetLogger(ctx).Error("image answer generation failed", zap.Error(err))
		return nil, err
	}
	return &AskResult{
		Query:     query,
		QueryType: model.QueryTypeImage,
		Answer:    answer,
		Results:   result,
	}, nil
}

func (s *SearchService) Status(ctx context.Context) *EngineStatus {
	initialized, imageCount, textCount := s.retriever.Status()
	return &EngineStatus{
		Initialized: initialized,
		ImageCount:  imageCount,
		TextCount:   textCount,
		TopK:        s.topK,
	}
}
