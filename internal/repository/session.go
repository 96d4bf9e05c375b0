package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	GetByToken(ctx context.Context, token string) (*entity.Session, error)
	CompareAndSwap(ctx context.Context, session *entity.Session, expectedVersion int64) error
	DeleteByToken(ctx context.Context, token string) error
}

type dbSession struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) SessionRepository {
	return &dbSession{
		client: client,
	}
}

// Create stores a fresh session under its token. The token must be unused.
func (that *dbSession) Create(ctx context.Context, session *entity.Session) error {
	session.Version = 1

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("could not marshal session: %w", err)
	}

	ok, err := that.client.SetNX(ctx, sessionKey(session.Token), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}

	if !ok {
		return fmt.Errorf("%w: token %s", apperror.ErrSessionExists, session.Token)
	}

	return nil
}

func (that *dbSession) GetByToken(ctx context.Context, token string) (*entity.Session, error) {
	response, err := that.client.Get(ctx, sessionKey(token)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrSessionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get session by token: %w", err)
	}

	var existingSession entity.Session
	if err = json.Unmarshal([]byte(response), &existingSession); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &existingSession, nil
}

// CompareAndSwap persists the session only if the stored version still equals
// expectedVersion, bumping the version by one. Concurrent writers race on the
// watched key; the loser gets ErrVersionConflict and must re-read and retry.
// The write is transactional, so a lost race never leaves a partial update.
func (that *dbSession) CompareAndSwap(ctx context.Context, session *entity.Session, expectedVersion int64) error {
	key := sessionKey(session.Token)

	txf := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrSessionNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to get session by token: %w", err)
		}

		var stored entity.Session
		if err = json.Unmarshal([]byte(response), &stored); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}

		if stored.Version != expectedVersion {
			return apperror.ErrVersionConflict
		}

		session.Version = expectedVersion + 1

		payload, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("could not marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})

		return err
	}

	err := that.client.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		return apperror.ErrVersionConflict
	}

	if err != nil {
		return fmt.Errorf("failed to swap session: %w", err)
	}

	return nil
}

func (that *dbSession) DeleteByToken(ctx context.Context, token string) error {
	if err := that.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session by token: %w", err)
	}

	return nil
}

func sessionKey(token string) string {
	return "session:" + token
}
