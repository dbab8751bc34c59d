package transport

import (
	"github.com/gin-gonic/gin"
)

func InitRoutes(h *VTONHandler) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), Logger(), Recovery(), CORS())

	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	api := router.Group("/api/vton")
	{
		api.GET("/info", h.Info)
		api.POST("/try-on", h.TryOn)
		api.POST("/try-on/upload", h.TryOnUpload)
	}
	return router
}
