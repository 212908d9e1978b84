package api

import (
	"net/http"

	_ "roastbot-api/docs"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (s *Server) setupSwagger() {
	s.router.GET("/api/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"title":       "Roast Bot API",
			"version":     s.config.Version,
			"description": "Backend for the roast mirror: accounts, roast configs, LLM roast generation, TTS playback, and live camera streams",
			"swagger_ui":  "/docs/index.html",
			"endpoints": gin.H{
				"health":  "/health",
				"auth":    "/auth",
				"users":   "/users",
				"streams": "/api/streams",
				"device":  "/api/raspi",
				"system":  "/system",
				"metrics": "/metrics",
			},
			"port": s.config.Port,
		})
	})

	s.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	s.router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
}
