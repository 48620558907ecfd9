package router

import (
	"github.com/gin-gonic/gin"

	"promogen/controller"
	"promogen/logger"
	"promogen/pkg/sse"
)

// Setup 注册全部路由，同一组路由同时挂在根路径与 /api 下
func Setup(h *controller.Handler, mode string, generateRPS float64) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	r := gin.New()
	r.Use(logger.GinLogger(), logger.GinRecovery(true))

	r.GET("/healthz", controller.HealthzHandler)
	r.GET("/readyz", h.ReadyzHandler)

	limit := controller.RateLimit(generateRPS)
	register(&r.RouterGroup, h, limit)
	api := r.Group("/api")
	register(api, h, limit)
	// 旧 REST 服务的生成路径
	api.POST("/generate", limit, h.GenerateImageHandler)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "not found"})
	})
	return r
}

func register(g *gin.RouterGroup, h *controller.Handler, limit gin.HandlerFunc) {
	g.POST("/generate_image", limit, h.GenerateImageHandler)
	g.GET("/interactions/:user_id", h.InteractionsHandler)
	g.GET("/download/images/:user_id", h.DownloadImagesHandler)
	g.POST("/mark", h.MarkHandler)
	g.GET("/marked_images", h.MarkedImagesHandler)
	g.GET("/events", sse.ServeSSE)
}
