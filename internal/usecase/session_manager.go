package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/ultimate"
)

// maxSwapAttempts bounds the compare-and-swap retry loop; past that the
// conflict surfaces to the caller as a transient failure.
const maxSwapAttempts = 3

type sessionRepo interface {
	Create(ctx context.Context, session *entity.Session) error
	GetByToken(ctx context.Context, token string) (*entity.Session, error)
	CompareAndSwap(ctx context.Context, session *entity.Session, expectedVersion int64) error
}

// SessionManager owns the session lifecycle. All mutation goes through a
// read-modify-swap loop against the store, so two connection handlers for the
// same session never both write against the same version.
type SessionManager struct {
	logger      *slog.Logger
	sessionRepo sessionRepo
}

func NewSessionManager(logger *slog.Logger, sessionRepo sessionRepo) *SessionManager {
	return &SessionManager{
		logger:      logger,
		sessionRepo: sessionRepo,
	}
}

// CreateSession issues a fresh token and persists an empty waiting session.
func (that *SessionManager) CreateSession(ctx context.Context) (*entity.Session, error) {
	log := that.logger.With("method", "CreateSession")

	session := entity.NewSession(uuid.NewString())

	if err := that.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info("session created", "token", session.Token)

	return session, nil
}

func (that *SessionManager) GetSession(ctx context.Context, token string) (*entity.Session, error) {
	session, err := that.sessionRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// JoinSession puts the identity into the first free slot; the second join
// starts the game. Rejoining with a known identity is idempotent.
func (that *SessionManager) JoinSession(ctx context.Context, token, playerID string) (*entity.Session, error) {
	return that.mutateSession(ctx, token, func(session *entity.Session) error {
		return session.Join(playerID)
	})
}

// MakeMove resolves the identity to its mark and applies one turn. Rules and
// lifecycle errors come back as plain values with the current session, so the
// transport can answer the sender without touching the connection.
func (that *SessionManager) MakeMove(ctx context.Context, token, playerID string, subBoard, cell int) (*entity.Session, error) {
	return that.mutateSession(ctx, token, func(session *entity.Session) error {
		if session.IsWaiting() {
			return apperror.ErrGameIsNotStarted
		}

		player := session.PlayerByID(playerID)
		if player == nil {
			return apperror.ErrNotInSession
		}

		move := entity.Move{Player: player.Mark, SubBoard: subBoard, Cell: cell}

		return ultimate.ApplyMove(session, player.Mark, move)
	})
}

// mutateSession is the optimistic concurrency loop: read the session, apply
// the transition, compare-and-swap. On a version conflict the transition is
// re-run against the fresh state and re-validated from scratch.
func (that *SessionManager) mutateSession(ctx context.Context, token string, transition func(*entity.Session) error) (*entity.Session, error) {
	log := that.logger.With("method", "mutateSession", "token", token)

	var lastErr error

	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		session, err := that.sessionRepo.GetByToken(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}

		expectedVersion := session.Version

		if err = transition(session); err != nil {
			return session, err
		}

		err = that.sessionRepo.CompareAndSwap(ctx, session, expectedVersion)
		if errors.Is(err, apperror.ErrVersionConflict) {
			log.Info("session changed underneath, retrying", "version", expectedVersion)
			lastErr = err
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to persist session: %w", err)
		}

		return session, nil
	}

	return nil, fmt.Errorf("failed to persist session after %d attempts: %w", maxSwapAttempts, lastErr)
}
