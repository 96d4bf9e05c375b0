package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

const shutdownTimeout = 5 * time.Second

type sessionUseCase interface {
	CreateSession(ctx context.Context) (*entity.Session, error)
	GetSession(ctx context.Context, token string) (*entity.Session, error)
}

type Server struct {
	logger   *slog.Logger
	sessions sessionUseCase
}

func New(logger *slog.Logger, sessions sessionUseCase) *Server {
	return &Server{
		logger:   logger,
		sessions: sessions,
	}
}

// Start - serves the session directory API until the context is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", that.pingHandler)
	mux.HandleFunc("POST /api/sessions", that.createSessionHandler)
	mux.HandleFunc("GET /api/sessions/{token}", that.getSessionHandler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}

		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("failed to start server: %w", err)
	}
}
