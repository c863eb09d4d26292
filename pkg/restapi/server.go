package restapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/getmockd/mockman/pkg/instance"
	"github.com/getmockd/mockman/pkg/logging"
)

// DefaultAddr is the control-plane adapter's default bind address, distinct
// from any mock instance's own port.
const DefaultAddr = "127.0.0.1:4290"

// Server is the control-plane REST adapter: it translates HTTP requests
// into instance.Manager calls and maps the Manager's typed errors to
// §6's status/errorCode taxonomy.
type Server struct {
	mgr        *instance.Manager
	httpServer *http.Server
	addr       string
	log        *slog.Logger
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// NewServer builds a control-plane adapter over mgr, bound to addr
// (DefaultAddr if empty).
func NewServer(mgr *instance.Manager, addr string, opts ...Option) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{mgr: mgr, addr: addr, log: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/servers", s.handleCreateServer)
	mux.HandleFunc("GET /api/servers", s.handleListServers)
	mux.HandleFunc("GET /api/servers/{id}", s.handleGetServer)
	mux.HandleFunc("DELETE /api/servers/{id}", s.handleDeleteServer)
	mux.HandleFunc("GET /api/servers/{id}/exists", s.handleExistsServer)
	mux.HandleFunc("POST /api/servers/{id}/expectations", s.handleSetExpectations)
	mux.HandleFunc("GET /api/servers/{id}/expectations", s.handleGetExpectations)
	mux.HandleFunc("DELETE /api/servers/{id}/expectations", s.handleClearExpectations)
}

// Start binds the listener and serves in the background. Synchronous
// listen so a port-in-use error surfaces immediately to the caller.
func (s *Server) Start() error {
	s.log.Info("starting control-plane API", "addr", s.addr)
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on control-plane address %s: %w", s.addr, err)
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("control-plane API server error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the adapter down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
