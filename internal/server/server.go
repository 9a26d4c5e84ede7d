package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/toolrelay/toolrelay/internal/config"
)

type Server struct {
	cfg        *config.Config
	http       *http.Server
	components *Components
}

func New(cfg *config.Config, components *Components) *Server {
	return &Server{
		cfg:        cfg,
		components: components,
		http: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      NewRouter(cfg, components),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: writeTimeout(cfg),
			IdleTimeout:  120 * time.Second,
		},
	}
}

// writeTimeout leaves room for a full tool loop: every round may spend the
// model timeout plus the tool timeout.
func writeTimeout(cfg *config.Config) time.Duration {
	return 5*(cfg.ModelTimeout+cfg.ToolTimeout) + 10*time.Second
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.http.Addr).Msg("listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("graceful shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := s.http.Shutdown(shutdownCtx)
		s.components.Close()
		return err
	case err := <-errCh:
		s.components.Close()
		return err
	}
}
