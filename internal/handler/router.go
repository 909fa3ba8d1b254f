package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Search *SearchHandler
	Ask    *AskHandler
	Status *StatusHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/search/text", deps.Search.SearchText)
	api.POST("/search/image", deps.Search.SearchImage)
	api.POST("/ask", deps.Ask.Ask)
	api.GET("/status", deps.Status.Status)
}
