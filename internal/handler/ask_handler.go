package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/clipdex/clipdex/internal/pkg/errcode"
	"github.com/clipdex/clipdex/internal/pkg/response"
	"github.com/clipdex/clipdex/internal/service"
)

type AskHandler struct {
	search *service.SearchService
}

func NewAskHandler(search *service.SearchService) *AskHandler {
	return &AskHandler{search: search}
}

type askRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// Ask answers a question grounded in retrieved corpus context. A multipart
// body carries a query image (plus an optional query form field), a JSON
// body carries a text query.
func (h *AskHandler) Ask(c *gin.Context) {
	if c.ContentType() == "multipart/form-data" {
		h.askImage(c)
		return
	}
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	result, err := h.search.AskText(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *AskHandler) askImage(c *gin.Context) {
	ref, err := imageRefFromForm(c)
	if err != nil {
		handleError(c, err)
		return
	}
	result, err := h.search.AskImage(c.Request.Context(), ref, c.PostForm("query"), topKFromForm(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
