package apperror

import "errors"

var (
	ErrGameFinished     = errors.New("game is already finished")
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrSubBoardClosed   = errors.New("sub-board is already closed")
	ErrWrongSubBoard    = errors.New("move targets the wrong sub-board")

	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionFull     = errors.New("session already has two players")
	ErrNotInSession    = errors.New("player is not part of this session")

	ErrVersionConflict = errors.New("session version conflict")
)
