// Package api provides the HTTP surface for room asset-bundle generation:
// submission, status polling, deletion, and operator-facing queue metrics.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/eroom/pkg/jobstore"
	"github.com/codeready-toolchain/eroom/pkg/orchestrator"
	"github.com/codeready-toolchain/eroom/pkg/queue"
	"github.com/codeready-toolchain/eroom/pkg/version"
)

// roomQueue is the subset of *queue.Manager the API depends on.
type roomQueue interface {
	Submit(req orchestrator.Request) (string, error)
	Status() queue.Status
}

// Server is the HTTP API server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	queue      roomQueue
	store      *jobstore.Store
}

// NewServer builds a Server wired to q and store, with routes registered.
func NewServer(q roomQueue, store *jobstore.Store) *Server {
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(gin.Recovery())

	s := &Server{engine: e, queue: q, store: store}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)
	s.engine.POST("/room/create", s.createRoomHandler)
	s.engine.GET("/room/status/:ruid", s.roomStatusHandler)
	s.engine.DELETE("/room/:ruid", s.deleteRoomHandler)
	s.engine.GET("/queue/status", s.queueStatusHandler)
}

// Start runs the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	return s.httpServer.ListenAndServe()
}

// StartWithListener runs the HTTP server on a pre-created listener, for
// tests that need a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.engine}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": version.Full(),
		"time":    time.Now().Format(time.RFC3339),
	})
}
