package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"threadmirror/internal/platform/config"
	"threadmirror/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

// Server pairs a chi mux with a stdlib http.Server
type Server struct {
	addr string
	mux  *chi.Mux
	srv  *stdhttp.Server
}

// NewServer builds a server on cfg's PORT (default :4000); each opt gets
// the raw *chi.Mux for mounting routes and middleware
func NewServer(cfg config.Conf, opts ...func(*chi.Mux)) *Server {
	addr := cfg.MayString("PORT", ":4000")

	m := chi.NewRouter()
	for _, o := range opts {
		o(m)
	}

	return &Server{
		addr: addr,
		mux:  m,
		srv: &stdhttp.Server{
			Addr:              addr,
			Handler:           m,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Router exposes the mux behind the platform Router seam
func (s *Server) Router() Router { return AdaptChi(s.mux) }

// Addr reports the listening address
func (s *Server) Addr() string { return s.addr }

// Run listens and blocks until the server closes
func (s *Server) Run(_ context.Context) error {
	logger.Named("http").Info().Str("addr", s.addr).Msg("http listening")
	if err := s.srv.ListenAndServe(); !errors.Is(err, stdhttp.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in flight requests and stops the listener
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
