package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/ultimate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSessionRepo mimics the store's compare-and-swap semantics in memory,
// including the version check. beforeSwap, when set, runs once before the
// next swap so tests can interleave a competing writer.
type fakeSessionRepo struct {
	sessions   map[string]*entity.Session
	beforeSwap func()
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions: make(map[string]*entity.Session),
	}
}

func cloneSession(session *entity.Session) *entity.Session {
	raw, err := json.Marshal(session)
	if err != nil {
		panic(err)
	}

	var clone entity.Session
	if err = json.Unmarshal(raw, &clone); err != nil {
		panic(err)
	}

	return &clone
}

func (that *fakeSessionRepo) Create(_ context.Context, session *entity.Session) error {
	if _, ok := that.sessions[session.Token]; ok {
		return fmt.Errorf("%w: token %s", apperror.ErrSessionExists, session.Token)
	}

	session.Version = 1
	that.sessions[session.Token] = cloneSession(session)

	return nil
}

func (that *fakeSessionRepo) GetByToken(_ context.Context, token string) (*entity.Session, error) {
	session, ok := that.sessions[token]
	if !ok {
		return nil, apperror.ErrSessionNotFound
	}

	return cloneSession(session), nil
}

func (that *fakeSessionRepo) CompareAndSwap(_ context.Context, session *entity.Session, expectedVersion int64) error {
	if that.beforeSwap != nil {
		hook := that.beforeSwap
		that.beforeSwap = nil
		hook()
	}

	stored, ok := that.sessions[session.Token]
	if !ok {
		return apperror.ErrSessionNotFound
	}

	if stored.Version != expectedVersion {
		return apperror.ErrVersionConflict
	}

	session.Version = expectedVersion + 1
	that.sessions[session.Token] = cloneSession(session)

	return nil
}

func newTestManager() (*SessionManager, *fakeSessionRepo) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	repo := newFakeSessionRepo()

	return NewSessionManager(logger, repo), repo
}

func TestSessionManager_CreateSession(t *testing.T) {
	ctx := context.Background()
	manager, repo := newTestManager()

	// When: a session is created
	session, err := manager.CreateSession(ctx)

	// Then: it gets an unguessable UUID token and waits for players
	require.NoError(t, err)
	_, err = uuid.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusWaiting, session.Status)

	stored, err := repo.GetByToken(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
}

func TestSessionManager_JoinSession(t *testing.T) {
	t.Run("Two joins start the game", func(t *testing.T) {
		ctx := context.Background()
		manager, _ := newTestManager()

		created, err := manager.CreateSession(ctx)
		require.NoError(t, err)

		_, err = manager.JoinSession(ctx, created.Token, "alice")
		require.NoError(t, err)

		session, err := manager.JoinSession(ctx, created.Token, "bob")
		require.NoError(t, err)

		assert.True(t, session.IsOngoing())
		assert.Equal(t, entity.PlayerX, session.Turn)
		assert.Equal(t, int64(3), session.Version)
	})

	t.Run("Third identity gets ErrSessionFull", func(t *testing.T) {
		ctx := context.Background()
		manager, _ := newTestManager()

		created, err := manager.CreateSession(ctx)
		require.NoError(t, err)
		_, err = manager.JoinSession(ctx, created.Token, "alice")
		require.NoError(t, err)
		_, err = manager.JoinSession(ctx, created.Token, "bob")
		require.NoError(t, err)

		_, err = manager.JoinSession(ctx, created.Token, "carol")

		assert.ErrorIs(t, err, apperror.ErrSessionFull)
	})

	t.Run("Unknown token gets ErrSessionNotFound", func(t *testing.T) {
		ctx := context.Background()
		manager, _ := newTestManager()

		_, err := manager.JoinSession(ctx, uuid.NewString(), "alice")

		assert.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})
}

func TestSessionManager_MakeMove(t *testing.T) {
	startSession := func(t *testing.T, manager *SessionManager) string {
		t.Helper()

		ctx := context.Background()
		created, err := manager.CreateSession(ctx)
		require.NoError(t, err)
		_, err = manager.JoinSession(ctx, created.Token, "alice")
		require.NoError(t, err)
		_, err = manager.JoinSession(ctx, created.Token, "bob")
		require.NoError(t, err)

		return created.Token
	}

	t.Run("Valid move is applied and persisted", func(t *testing.T) {
		ctx := context.Background()
		manager, repo := newTestManager()
		token := startSession(t, manager)

		session, err := manager.MakeMove(ctx, token, "alice", 4, 0)

		require.NoError(t, err)
		assert.Equal(t, entity.PlayerX, session.Board[4][0])
		assert.Equal(t, entity.PlayerO, session.Turn)
		assert.Equal(t, 0, session.ActiveConstraint)

		stored, err := repo.GetByToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, session.Board, stored.Board)
		assert.Len(t, stored.Moves, 1)
	})

	t.Run("Move before the second player joined is a lifecycle error", func(t *testing.T) {
		ctx := context.Background()
		manager, _ := newTestManager()

		created, err := manager.CreateSession(ctx)
		require.NoError(t, err)
		_, err = manager.JoinSession(ctx, created.Token, "alice")
		require.NoError(t, err)

		_, err = manager.MakeMove(ctx, created.Token, "alice", 4, 0)

		assert.ErrorIs(t, err, apperror.ErrGameIsNotStarted)
	})

	t.Run("Identity outside the session cannot move", func(t *testing.T) {
		ctx := context.Background()
		manager, _ := newTestManager()
		token := startSession(t, manager)

		_, err := manager.MakeMove(ctx, token, "mallory", 4, 0)

		assert.ErrorIs(t, err, apperror.ErrNotInSession)
	})

	t.Run("Rules error is surfaced without persisting", func(t *testing.T) {
		ctx := context.Background()
		manager, repo := newTestManager()
		token := startSession(t, manager)

		_, err := manager.MakeMove(ctx, token, "bob", 4, 0)

		assert.ErrorIs(t, err, apperror.ErrNotYourTurn)

		stored, getErr := repo.GetByToken(ctx, token)
		require.NoError(t, getErr)
		assert.Empty(t, stored.Moves)
	})
}

func TestSessionManager_VersionConflicts(t *testing.T) {
	startSession := func(t *testing.T, manager *SessionManager) string {
		t.Helper()

		ctx := context.Background()
		created, err := manager.CreateSession(ctx)
		require.NoError(t, err)
		_, err = manager.JoinSession(ctx, created.Token, "alice")
		require.NoError(t, err)
		_, err = manager.JoinSession(ctx, created.Token, "bob")
		require.NoError(t, err)

		return created.Token
	}

	t.Run("Loser of a concurrent write is re-validated against fresh state", func(t *testing.T) {
		ctx := context.Background()
		manager, repo := newTestManager()
		token := startSession(t, manager)

		// Given: a competing handler lands the same move first, right
		// between this call's read and its swap
		repo.beforeSwap = func() {
			stored := repo.sessions[token]
			move := entity.Move{Player: entity.PlayerX, SubBoard: 4, Cell: 4}
			require.NoError(t, ultimate.ApplyMove(stored, entity.PlayerX, move))
			stored.Version++
		}

		// When: alice submits the move that just lost the race
		_, err := manager.MakeMove(ctx, token, "alice", 4, 4)

		// Then: the retry re-validates and reports a rules error, not a conflict
		assert.ErrorIs(t, err, apperror.ErrNotYourTurn)

		stored, getErr := repo.GetByToken(ctx, token)
		require.NoError(t, getErr)
		assert.Len(t, stored.Moves, 1)
	})

	t.Run("Persistent conflicts surface once retries are exhausted", func(t *testing.T) {
		ctx := context.Background()
		manager, repo := newTestManager()
		token := startSession(t, manager)

		// Given: the stored version moves ahead before every swap attempt
		bump := func() {
			repo.sessions[token].Version++
		}
		repo.beforeSwap = func() {
			bump()
			repo.beforeSwap = func() {
				bump()
				repo.beforeSwap = bump
			}
		}

		_, err := manager.MakeMove(ctx, token, "alice", 4, 4)

		assert.ErrorIs(t, err, apperror.ErrVersionConflict)
	})
}
