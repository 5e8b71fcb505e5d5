package handler

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册短链接相关路由
func RegisterRoutes(router *gin.Engine, h *ShortLinkHandler) {
	router.GET("/health", h.HealthCheck)

	shorturls := router.Group("/shorturls")
	{
		shorturls.POST("", h.CreateShortLink)
		shorturls.GET("/:code", h.GetStats)
	}

	router.GET("/:code", h.RedirectToOriginal)
	router.NoRoute(h.RouteNotFound)
}
