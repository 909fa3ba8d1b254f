package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/clipdex/clipdex/internal/ai"
	"github.com/clipdex/clipdex/internal/embedding"
	"github.com/clipdex/clipdex/internal/pkg/errcode"
	appErr "github.com/clipdex/clipdex/internal/pkg/errors"
	"github.com/clipdex/clipdex/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrEmptyContext):
		response.Error(c, errcode.ErrNoResults, "no relevant results in the corpus")
	case errors.Is(err, ai.ErrUnavailable):
		response.Error(c, errcode.ErrAIUnavailable, "ai backend not available")
	case errors.Is(err, appErr.ErrNotInitialized):
		response.Error(c, errcode.ErrIndexNotReady, "index not ready")
	case errors.Is(err, appErr.ErrFetchImage),
		errors.Is(err, appErr.ErrDecodeImage),
		errors.Is(err, appErr.ErrZeroVector):
		response.Error(c, errcode.ErrInvalidImage, "invalid image input")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}

// imageRefFromForm pulls the query image out of a multipart request,
// preferring an uploaded file over a url form field.
func imageRefFromForm(c *gin.Context) (embedding.ImageRef, error) {
	if file, err := c.FormFile("image"); err == nil {
		opened, err := file.Open()
		if err != nil {
			return embedding.ImageRef{}, fmt.Errorf("open upload: %w", appErr.ErrInvalid)
		}
		defer opened.Close()
		return embedding.FromReader(opened, file.Filename)
	}
	url := strings.TrimSpace(c.PostForm("url"))
	if url == "" {
		return embedding.ImageRef{}, fmt.Errorf("image file or url required: %w", appErr.ErrInvalid)
	}
	return embedding.ImageRef{Locator: url}, nil
}

func topKFromForm(c *gin.Context) int {
	k, _ := strconv.Atoi(c.PostForm("top_k"))
	return k
}
