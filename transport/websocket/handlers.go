package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/ultimate"
)

// recoverableErrors are reported to the offending sender and leave the
// connection and the session alone.
var recoverableErrors = []error{
	apperror.ErrNotYourTurn,
	apperror.ErrCellOccupied,
	apperror.ErrSubBoardClosed,
	apperror.ErrWrongSubBoard,
	apperror.ErrGameFinished,
	apperror.ErrGameIsNotStarted,
	apperror.ErrSessionFull,
	apperror.ErrSessionNotFound,
	apperror.ErrNotInSession,
	ultimate.ErrInvalidMove,
}

func isRecoverable(err error) bool {
	for _, known := range recoverableErrors {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}

func (that *Server) handleJoin(ctx context.Context, conn *connection, msg *Message) error {
	log := that.logger.With("method", "handleJoin", "token", conn.token)

	var payloadReq Payload

	if err := json.Unmarshal(msg.Payload, &payloadReq); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	playerID := ""
	if payloadReq.Player != nil {
		playerID = payloadReq.Player.ID
	}
	if playerID == "" {
		playerID = uuid.NewString()
	}

	session, err := that.sessions.JoinSession(ctx, conn.token, playerID)
	if isRecoverable(err) {
		return that.sendErrorResponse(conn, msg.Action, err.Error())
	}

	if err != nil {
		log.Error("failed to join session", "error", err)
		return that.sendErrorResponse(conn, msg.Action, "failed to join session")
	}

	that.registerConnection(conn, playerID)

	that.broadcastSession(msg.Action, session)

	log.Info("player joined session", "playerID", playerID)

	return nil
}

func (that *Server) handleMove(ctx context.Context, conn *connection, msg *Message) error {
	log := that.logger.With("method", "handleMove", "token", conn.token)

	var payloadReq Payload

	if err := json.Unmarshal(msg.Payload, &payloadReq); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if payloadReq.Move == nil {
		log.Error("move is missing in payload")
		return that.sendErrorResponse(conn, msg.Action, "move is required")
	}

	// the identity bound at join time wins; the payload's player is only a
	// fallback for peers that moved before joining on this connection
	playerID := conn.playerID
	if playerID == "" && payloadReq.Player != nil {
		playerID = payloadReq.Player.ID
	}

	if playerID == "" {
		return that.sendErrorResponse(conn, msg.Action, "join the session before moving")
	}

	session, err := that.sessions.MakeMove(ctx, conn.token, playerID, payloadReq.Move.SubBoard, payloadReq.Move.Cell)
	if isRecoverable(err) {
		return that.sendErrorResponse(conn, msg.Action, err.Error())
	}

	if err != nil {
		log.Error("failed to make move", "playerID", playerID, "error", err)
		return that.sendErrorResponse(conn, msg.Action, "failed to make move")
	}

	that.broadcastSession(msg.Action, session)

	log.Info("player made a move", "playerID", playerID)

	return nil
}

func (that *Server) handlePing(_ context.Context, conn *connection, _ *Message) error {
	if err := that.sendMessage(conn, "pong", Payload{}); err != nil {
		return fmt.Errorf("failed to send pong: %w", err)
	}

	return nil
}
