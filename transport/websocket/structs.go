package websocket

import (
	"bufio"
	"encoding/json"
	"sync"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Payload is the body of both requests and responses. Error is only ever set
// on responses to the offending sender.
type Payload struct {
	Player  *entity.Player `json:"player,omitempty"`
	Session *Session       `json:"session,omitempty"`
	Move    *Move          `json:"move,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Session is the authoritative state snapshot broadcast after every accepted
// mutation.
type Session struct {
	Token            string       `json:"token"`
	Board            entity.Board `json:"board"`
	Turn             string       `json:"turn,omitempty"`
	ActiveConstraint int          `json:"active_constraint"`
	Status           string       `json:"status"`
	Winner           string       `json:"winner,omitempty"`
}

// Move addresses one cell: the sub-board 0..8 and the cell 0..8 inside it.
type Move struct {
	SubBoard int `json:"sub_board"`
	Cell     int `json:"cell"`
}

func newSessionPayload(session *entity.Session) *Session {
	return &Session{
		Token:            session.Token,
		Board:            session.Board,
		Turn:             session.Turn,
		ActiveConstraint: session.ActiveConstraint,
		Status:           session.Status,
		Winner:           session.Winner,
	}
}

// connection is one hijacked peer connection, bound to a session token at
// upgrade time and to a player identity on its first join. writeMutex
// serializes outbound frames: broadcasts run on the mover's goroutine, direct
// replies on the recipient's own read loop, and both target the same writer.
type connection struct {
	token    string
	playerID string

	writeMutex sync.Mutex
	bufrw      *bufio.ReadWriter
}

// frame represents a WebSocket frame and its metadata.
type frame struct {
	isFin   bool
	opCode  byte
	length  uint64
	payload []byte
}
