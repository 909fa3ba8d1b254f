package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/clipdex/clipdex/internal/pkg/errcode"
	"github.com/clipdex/clipdex/internal/pkg/response"
	"github.com/clipdex/clipdex/internal/service"
)

type SearchHandler struct {
	search *service.SearchService
}

func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

type textSearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (h *SearchHandler) SearchText(c *gin.Context) {
	var req textSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	result, err := h.search.SearchText(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *SearchHandler) SearchImage(c *gin.Context) {
	ref, err := imageRefFromForm(c)
	if err != nil {
		handleError(c, err)
		return
	}
	result, err := h.search.SearchImage(c.Request.Context(), ref, topKFromForm(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
