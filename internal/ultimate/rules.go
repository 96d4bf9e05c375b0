package ultimate

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

var ErrInvalidMove = errors.New("move indexes out of range")

// ApplyMove validates one turn against the nested-board rules, writes the
// mark and recomputes the session state: sub-board outcome, overall outcome,
// whose turn it is and which sub-board the opponent must play in next.
// On any rules error the session is left untouched.
func ApplyMove(session *entity.Session, mark string, move entity.Move) error {
	if session.IsFinished() {
		return apperror.ErrGameFinished
	}

	if err := validateMove(session, mark, move); err != nil {
		return err
	}

	session.Board[move.SubBoard][move.Cell] = mark

	move.Player = mark
	session.Moves = append(session.Moves, move)

	updateSessionState(session, mark, move.Cell)

	return nil
}

// validateMove checks every precondition from the rule set, one error per
// failed precondition.
func validateMove(session *entity.Session, mark string, move entity.Move) error {
	if move.SubBoard < 0 || move.SubBoard > 8 || move.Cell < 0 || move.Cell > 8 {
		return fmt.Errorf("%w: sub-board %d, cell %d", ErrInvalidMove, move.SubBoard, move.Cell)
	}

	if session.Turn != mark {
		return apperror.ErrNotYourTurn
	}

	// the constraint binds only while the sub-board it points at is open;
	// a player sent into a closed board may play any open one instead
	constraint := session.ActiveConstraint
	if constraint != entity.FreeConstraint && session.Board[constraint].IsOpen() && move.SubBoard != constraint {
		return apperror.ErrWrongSubBoard
	}

	if !session.Board[move.SubBoard].IsOpen() {
		return apperror.ErrSubBoardClosed
	}

	if session.Board[move.SubBoard][move.Cell] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	return nil
}

// updateSessionState recomputes the overall outcome after a move and, while
// the game is still open, hands the turn over. The cell just played decides
// the opponent's sub-board unless that sub-board is no longer open.
func updateSessionState(session *entity.Session, mark string, playedCell int) {
	switch winner := session.Board.Status(); winner {
	case entity.PlayerX, entity.PlayerO, entity.PlayerTie:
		session.Winner = winner
		session.Status = entity.StatusFinished
		session.Turn = ""
		session.ActiveConstraint = entity.FreeConstraint
	default:
		session.Turn = toggleMark(mark)
		if session.Board[playedCell].IsOpen() {
			session.ActiveConstraint = playedCell
		} else {
			session.ActiveConstraint = entity.FreeConstraint
		}
	}
}

func toggleMark(currentMark string) string {
	if currentMark == entity.PlayerX {
		return entity.PlayerO
	}
	return entity.PlayerX
}

// Replay rebuilds a session from an empty board by applying a move log in
// order. The result deterministically reproduces board, turn and constraint.
func Replay(moves []entity.Move) (*entity.Session, error) {
	session := entity.NewSession("")
	session.Status = entity.StatusOngoing
	session.Turn = entity.PlayerX

	for i, move := range moves {
		if err := ApplyMove(session, move.Player, move); err != nil {
			return nil, fmt.Errorf("failed to replay move %d: %w", i, err)
		}
	}

	return session, nil
}
