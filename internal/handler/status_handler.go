package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/clipdex/clipdex/internal/pkg/response"
	"github.com/clipdex/clipdex/internal/service"
)

type StatusHandler struct {
	search *service.SearchService
}

func NewStatusHandler(search *service.SearchService) *StatusHandler {
	return &StatusHandler{search: search}
}

func (h *StatusHandler) Status(c *gin.Context) {
	response.Success(c, h.search.Status(c.Request.Context()))
}
