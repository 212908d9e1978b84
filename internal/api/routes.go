package api

import (
	"github.com/gin-gonic/gin"

	"roastbot-api/internal/api/middleware"
)

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.Welcome)
	s.router.GET("/health", s.healthHandler.HealthCheck)
	s.router.GET("/metrics", gin.WrapH(s.services.Metrics.Handler()))
	s.router.Static("/uploads", s.config.UploadDir)

	requireAuth := middleware.RequireAuth(s.services.Auth, s.services.Store)
	requireDeviceKey := middleware.RequireDeviceKey(s.config.DeviceAPIKey)

	auth := s.router.Group("/auth")
	{
		auth.POST("/register", s.authHandler.Register)
		auth.POST("/login", s.authHandler.Login)
	}

	users := s.router.Group("/users", requireAuth)
	{
		users.GET("", s.userHandler.List)
		users.GET("/me", s.userHandler.Me)
		users.PUT("/me", s.userHandler.UpdateMe)
		users.POST("/me/profile-image", s.userHandler.ProfileImage)
		users.PUT("/:target_user_id/roast-config", s.roastHandler.UpdateConfig)
		users.GET("/:target_user_id/roast-config", s.roastHandler.GetConfig)
		users.POST("/:target_user_id/roast", s.roastHandler.SubmitRoast)
		users.GET("/:target_user_id/all-roasts", s.roastHandler.AllRoasts)
	}

	api := s.router.Group("/api")
	{
		// The device speaker polls this without a user session
		api.POST("/generate-roast/:user_id", s.roastHandler.GenerateRoast)
		api.GET("/roast-history/:user_id", requireAuth, s.roastHandler.History)

		api.GET("/streams", requireAuth, s.streamHandler.ListStreams)
		api.GET("/streams/:stream_id/live", requireAuth, s.streamHandler.LiveAnalysis)
		api.GET("/stream/:stream_id/analysis", requireAuth, s.streamHandler.StreamAnalysis)
		api.GET("/stream/:stream_id/feed", requireAuth, s.streamHandler.StreamFeed)
		api.GET("/public-stream/:stream_id/:api_key", s.streamHandler.PublicStream(s.config.DeviceAPIKey))

		raspi := api.Group("/raspi")
		{
			raspi.POST("/trigger-roast", requireDeviceKey, s.roastHandler.TriggerRoast)
			raspi.POST("/stream-frame", requireDeviceKey, s.streamHandler.StreamFrame)
			// The PiCamera uploader predates the key header and sends none
			raspi.POST("/upload_frame", s.streamHandler.UploadFrame)
		}
	}

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
		system.GET("/debug", s.systemHandler.GetDebugInfo)
	}
}
