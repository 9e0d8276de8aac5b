// -----------------------------------------------------------------------
// Server - HTTP entry point wrapping the App in a gorilla/mux router
// -----------------------------------------------------------------------

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ternarybob/quaero/internal/app"
)

// Server owns the HTTP listener and routing for the agent task API.
type Server struct {
	app          *app.App
	httpServer   *http.Server
	shutdownChan chan struct{}
}

// New builds a Server around application, wiring routes and middleware.
func New(application *app.App) *Server {
	s := &Server{app: application}

	router := mux.NewRouter()
	s.registerRoutes(router)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", application.Config.Server.Host, application.Config.Server.Port),
		Handler:      s.withConditionalMiddleware(router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// SetShutdownChannel lets an external caller (e.g. a /shutdown route, or
// the process's signal handler) trigger graceful shutdown.
func (s *Server) SetShutdownChannel(ch chan struct{}) {
	s.shutdownChan = ch
}

// Start begins serving HTTP requests; blocks until the listener stops.
func (s *Server) Start() error {
	s.app.Logger.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
