package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dropDatabas3/mailveil/internal/observability/logger"
)

const shutdownGrace = 10 * time.Second

// Server envuelve http.Server con apagado ordenado vía contexto.
type Server struct {
	srv *http.Server
}

func NewServer(addr string, h http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Run bloquea hasta que el contexto se cancele o el listener falle.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		logger.L().Info("shutting down http server", logger.String("addr", s.srv.Addr))
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
