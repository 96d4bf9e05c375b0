package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

// sessionResponse is the directory's view of a session: everything a client
// needs to render the match, minus the other player's identity.
type sessionResponse struct {
	Token            string       `json:"token"`
	Board            entity.Board `json:"board"`
	Turn             string       `json:"turn,omitempty"`
	ActiveConstraint int          `json:"active_constraint"`
	Status           string       `json:"status"`
	Winner           string       `json:"winner,omitempty"`
	Moves            int          `json:"moves"`
}

func newSessionResponse(session *entity.Session) *sessionResponse {
	return &sessionResponse{
		Token:            session.Token,
		Board:            session.Board,
		Turn:             session.Turn,
		ActiveConstraint: session.ActiveConstraint,
		Status:           session.Status,
		Winner:           session.Winner,
		Moves:            len(session.Moves),
	}
}

func (that *Server) pingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

func (that *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "createSessionHandler")

	session, err := that.sessions.CreateSession(r.Context())
	if err != nil {
		log.Error("failed to create session", "error", err)
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	that.writeJSON(w, http.StatusCreated, newSessionResponse(session))
}

func (that *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "getSessionHandler")

	token := r.PathValue("token")

	session, err := that.sessions.GetSession(r.Context(), token)
	if errors.Is(err, apperror.ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	if err != nil {
		log.Error("failed to get session", "token", token, "error", err)
		http.Error(w, "failed to get session", http.StatusInternalServerError)
		return
	}

	that.writeJSON(w, http.StatusOK, newSessionResponse(session))
}

func (that *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}
