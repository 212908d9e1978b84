package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"roastbot-api/internal/api/handlers"
	"roastbot-api/internal/api/middleware"
	"roastbot-api/internal/config"
	"roastbot-api/internal/services"
)

type Server struct {
	config   *config.Config
	router   *gin.Engine
	server   *http.Server
	services *services.ServiceContainer

	healthHandler *handlers.HealthHandler
	authHandler   *handlers.AuthHandler
	userHandler   *handlers.UserHandler
	roastHandler  *handlers.RoastHandler
	streamHandler *handlers.StreamHandler
	systemHandler *handlers.SystemHandler
}

func NewServer(cfg *config.Config, container *services.ServiceContainer) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		config:        cfg,
		router:        router,
		services:      container,
		healthHandler: handlers.NewHealthHandler("roastbot-api"),
		authHandler:   handlers.NewAuthHandler(container.Auth, container.Store),
		userHandler:   handlers.NewUserHandler(container.Store, cfg),
		roastHandler:  handlers.NewRoastHandler(container.Store, container.Roast, container.TTS, cfg),
		streamHandler: handlers.NewStreamHandler(container.StreamManager, container.Ingestor),
		systemHandler: handlers.NewSystemHandler(container.StreamManager, container.Messaging),
	}
}

func (s *Server) Setup() error {
	s.setupMiddleware()

	s.setupRoutes()

	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}

	return nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.CORS(s.config.CORSOrigin))
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestContext())

	// MJPEG feeds, websockets and the metrics scrape must not be buffered
	// through the compressor.
	s.router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{
		`^/api/stream/`,
		`^/api/streams/.+/live$`,
		`^/api/public-stream/`,
		`^/metrics`,
		`^/uploads/`,
	})))
}

func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) GetServer() *http.Server {
	return s.server
}
