// Package server exposes the variation pipeline over HTTP for the dashboard
// front-end: uploads, parameter editing, job control, progress polling and
// result downloads.
package server

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"video-variator/internal/capability"
	"video-variator/internal/config"
	"video-variator/internal/events"
	"video-variator/internal/params"
	"video-variator/internal/variation"
)

// Server wires the HTTP surface to the orchestration pipeline. One job runs
// at a time; the queue serializes everything behind it.
type Server struct {
	router   *gin.Engine
	logger   zerolog.Logger
	settings config.Settings

	specMu sync.Mutex
	spec   *params.Spec

	queue    *variation.Queue
	orch     *variation.Orchestrator
	bus      *events.Bus
	detector *capability.Detector

	runMu   sync.Mutex
	running bool
}

// New builds a server around the given pipeline components.
func New(
	settings config.Settings,
	orch *variation.Orchestrator,
	queue *variation.Queue,
	bus *events.Bus,
	detector *capability.Detector,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		logger:   logger.With().Str("component", "server").Logger(),
		settings: settings,
		spec:     params.DefaultSpec(),
		queue:    queue,
		orch:     orch,
		bus:      bus,
		detector: detector,
	}

	gin.SetMode(gin.ReleaseMode)
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")

	api.GET("/capabilities", s.handleCapabilities)

	api.GET("/params", s.handleGetParams)
	api.PATCH("/params", s.handlePatchParams)

	api.POST("/videos", s.handleUpload)
	api.GET("/queue", s.handleListQueue)
	api.DELETE("/queue/:id", s.handleRemoveItem)
	api.DELETE("/queue", s.handleClearQueue)

	api.POST("/jobs", s.handleStartJob)
	api.GET("/events", s.handleEvents)

	api.GET("/results", s.handleListResults)
	api.GET("/results/:id/:n/download", s.handleDownload)
	api.GET("/results/:id/:n/metadata", s.handleMetadata)
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts serving on addr and blocks.
func (s *Server) Run(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("serving dashboard API")
	return s.router.Run(addr)
}

// currentSpec returns an isolated copy of the editable parameter spec.
func (s *Server) currentSpec() *params.Spec {
	s.specMu.Lock()
	defer s.specMu.Unlock()
	return s.spec.Clone()
}
