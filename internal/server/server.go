// Package server exposes the engine over HTTP: graph registration, run
// creation, run inspection, and a WebSocket feed of per-run events.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/petrijr/nodeflow/pkg/api"
)

// Server implements the HTTP API for the engine
type Server struct {
	engine api.Engine
}

var (
	ErrInvalidJSON = errors.New("invalid JSON payload")
	ErrCreateGraph = errors.New("failed to create graph")
	ErrCreateRun   = errors.New("failed to create run")
	ErrStartRun    = errors.New("failed to start run")
	ErrGetRun      = errors.New("failed to get run")
)

// NewServer creates a new HTTP API server around an engine
func NewServer(eng api.Engine) *Server {
	return &Server{engine: eng}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	router.GET("/health", s.handleHealth)

	graph := router.Group("/graph")
	{
		graph.POST("/create", s.createGraph)
		graph.POST("/run", s.startRun)
		graph.GET("/state/:runID", s.getRunState)
		graph.GET("/ws/:runID", s.handleWebSocket)
	}

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Service: "nodeflow",
		Status:  "healthy",
	})
}

func (s *Server) createGraph(c *gin.Context) {
	var spec api.GraphSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	graphID, err := s.engine.CreateGraph(spec)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrCreateGraph, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	c.JSON(http.StatusCreated, api.GraphCreatedResponse{GraphID: graphID})
}

func (s *Server) startRun(c *gin.Context) {
	var req api.CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	runID, err := s.engine.CreateRun(req.GraphID, req.InitialState)
	if err != nil {
		if errors.Is(err, api.ErrGraphNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{
				Error:  fmt.Sprintf("Graph not found: %s", req.GraphID),
				Status: http.StatusNotFound,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrCreateRun, err),
			Status: http.StatusInternalServerError,
		})
		return
	}

	if err := s.engine.StartRun(c.Request.Context(), runID); err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrStartRun, err),
			Status: http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusCreated, api.RunStartedResponse{RunID: runID})
}

func (s *Server) getRunState(c *gin.Context) {
	runID := c.Param("runID")

	run, err := s.engine.GetRun(runID)
	if err != nil {
		if errors.Is(err, api.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{
				Error:  fmt.Sprintf("Run not found: %s", runID),
				Status: http.StatusNotFound,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrGetRun, err),
			Status: http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, run)
}
