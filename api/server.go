package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/rs/zerolog/log"

	"example.com/florahub/services/plants/config"
	"example.com/florahub/services/plants/handlers"
	"example.com/florahub/services/plants/projections"
	"example.com/florahub/services/plants/repositories"
	"example.com/florahub/services/plants/search"
	"example.com/florahub/services/plants/tracing"
)

// Server is the HTTP server for the API
type Server struct {
	cfg            config.Config
	router         *gin.Engine
	httpServer     *http.Server
	plantHandler   *handlers.PlantHandler
	requestHandler *handlers.RequestHandler
	plantRepo      *repositories.PlantRepository
	requestRepo    *repositories.RequestRepository
	runner         *projections.Runner
	searcher       *search.ElasticClient
}

// NewServer creates a new API server. searcher and tracer may be nil.
func NewServer(
	cfg config.Config,
	plantHandler *handlers.PlantHandler,
	requestHandler *handlers.RequestHandler,
	plantRepo *repositories.PlantRepository,
	requestRepo *repositories.RequestRepository,
	runner *projections.Runner,
	searcher *search.ElasticClient,
	tracer tracing.Tracer,
) *Server {
	server := &Server{
		cfg:            cfg,
		router:         gin.New(),
		plantHandler:   plantHandler,
		requestHandler: requestHandler,
		plantRepo:      plantRepo,
		requestRepo:    requestRepo,
		runner:         runner,
		searcher:       searcher,
	}

	server.setupMiddleware(tracer)
	server.setupRoutes()

	return server
}

// setupMiddleware adds middleware to the router
func (s *Server) setupMiddleware(tracer tracing.Tracer) {
	s.router.Use(RequestIDMiddleware())

	if s.cfg.Server.CorsEnabled {
		s.router.Use(CORSMiddleware())
	}

	s.router.Use(gin.Recovery())
	s.router.Use(LoggingMiddleware())

	if tracer != nil && tracer.Application() != nil {
		s.router.Use(nrgin.Middleware(tracer.Application()))
	}
}

// setupRoutes defines the API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	v1 := s.router.Group("/api/v1")

	plantRoutes := v1.Group("/plants")
	{
		plantRoutes.POST("", s.createPlant)
		plantRoutes.GET("", s.listPlants)
		plantRoutes.GET("/search", s.searchPlants)
		plantRoutes.GET("/:id", s.getPlant)
		plantRoutes.GET("/:id/timeline", s.getPlantTimeline)
		plantRoutes.PUT("/:id", s.updatePlant)
		plantRoutes.DELETE("/:id", s.deletePlant)
		plantRoutes.POST("/:id/restore", s.restorePlant)
		plantRoutes.POST("/:id/change-requests", s.submitUpdateRequest)
		plantRoutes.GET("/:id/requests", s.listPlantRequests)
	}

	requestRoutes := v1.Group("/requests")
	{
		requestRoutes.POST("", s.submitCreationRequest)
		requestRoutes.GET("", s.listRequests)
		requestRoutes.GET("/:id", s.getRequest)
		requestRoutes.POST("/:id/approve", s.approveRequest)
		requestRoutes.POST("/:id/reject", s.rejectRequest)
	}

	adminRoutes := v1.Group("/admin/projections")
	{
		adminRoutes.GET("/status", s.projectionStatus)
		adminRoutes.POST("/reset", s.resetProjections)
		adminRoutes.POST("/replay", s.replayProjections)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.cfg.Server.Address,
		Handler: s.router,
	}

	log.Info().Msgf("HTTP server starting on %s", s.cfg.Server.Address)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
