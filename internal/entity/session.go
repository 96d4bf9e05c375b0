package entity

import "github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"

const (
	StatusFinished = "finished"
	StatusOngoing  = "ongoing"
	StatusWaiting  = "waiting"
)

// FreeConstraint means the next move may target any open sub-board.
const FreeConstraint = -1

// Move is one applied turn: which sub-board, which cell inside it, and by whom.
type Move struct {
	Player   string `json:"player"`
	SubBoard int    `json:"sub_board"`
	Cell     int    `json:"cell"`
}

// Player is a participant identity with its assigned mark.
type Player struct {
	ID   string `json:"id"`
	Mark string `json:"mark,omitempty"`
}

// Session is one match addressed by an unguessable token. Version is bumped
// on every persisted mutation and backs the store's compare-and-swap.
type Session struct {
	Token            string    `json:"token"`
	Board            Board     `json:"board"`
	Players          []*Player `json:"players,omitempty"`
	Turn             string    `json:"player_turn,omitempty"`
	ActiveConstraint int       `json:"active_constraint"`
	Status           string    `json:"status"`
	Winner           string    `json:"winner,omitempty"`
	Moves            []Move    `json:"moves,omitempty"`
	Version          int64     `json:"version"`
}

func NewSession(token string) *Session {
	return &Session{
		Token:            token,
		Status:           StatusWaiting,
		ActiveConstraint: FreeConstraint,
	}
}

func (that *Session) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Session) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that *Session) IsWaiting() bool {
	return that.Status == StatusWaiting
}

// PlayerByID returns a joined player or nil.
func (that *Session) PlayerByID(id string) *Player {
	for _, player := range that.Players {
		if player.ID == id {
			return player
		}
	}
	return nil
}

// Join assigns the identity to the first free slot. The first player gets X,
// the second gets O and starts the game. Rejoining with a known identity is a
// no-op, so a reconnecting peer never changes session state.
func (that *Session) Join(playerID string) error {
	if that.PlayerByID(playerID) != nil {
		return nil
	}

	if that.IsFinished() {
		return apperror.ErrGameFinished
	}

	switch len(that.Players) {
	case 0:
		that.Players = append(that.Players, &Player{ID: playerID, Mark: PlayerX})
	case 1:
		that.Players = append(that.Players, &Player{ID: playerID, Mark: PlayerO})
		that.Status = StatusOngoing
		that.Turn = PlayerX
	default:
		return apperror.ErrSessionFull
	}

	return nil
}
