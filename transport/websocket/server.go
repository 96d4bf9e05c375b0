package websocket

import (
	"context"
	"crypto/sha1" //nolint: gosec // RFC 6455 requires SHA-1 for the handshake
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

// Static GUID defined in RFC 6455 for WebSocket.
const websocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

const shutdownTimeout = 5 * time.Second

type sessionUseCase interface {
	JoinSession(ctx context.Context, token, playerID string) (*entity.Session, error)
	MakeMove(ctx context.Context, token, playerID string, subBoard, cell int) (*entity.Session, error)
}

type Server struct {
	logger   *slog.Logger
	sessions sessionUseCase

	handlers map[string]func(ctx context.Context, conn *connection, message *Message) error

	connectionsMutex sync.RWMutex
	connections      map[string]map[string]*connection // token -> playerID -> connection
}

func New(logger *slog.Logger, sessions sessionUseCase) *Server {
	server := &Server{
		logger:   logger,
		sessions: sessions,

		handlers:    make(map[string]func(context.Context, *connection, *Message) error),
		connections: make(map[string]map[string]*connection),
	}

	server.handlers["session:join"] = server.handleJoin
	server.handlers["session:move"] = server.handleMove
	server.handlers["ping"] = server.handlePing

	return server
}

// Start - starts the WebSocket server and serves until the context is
// canceled. Connections are addressed by session token: /ws/<token>, where
// the token must be a v4 UUID.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		// hijacked connections are outside Shutdown's reach; their read loops
		// end when the peers drop
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

// upgradeToWebSocket - upgrades the connection and runs its read loop.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	token := strings.TrimPrefix(req.URL.Path, "/ws/")
	if _, err := uuid.Parse(token); err != nil {
		http.Error(writer, "invalid session token", http.StatusNotFound)
		return
	}

	if req.Header.Get("Upgrade") != "websocket" {
		http.Error(writer, "not a websocket upgrade", http.StatusBadRequest)
		return
	}

	key := req.Header.Get("Sec-WebSocket-Key")
	acceptKey := GenerateAcceptKey(key)

	writer.Header().Set("Upgrade", "websocket")
	writer.Header().Set("Connection", "Upgrade")
	writer.Header().Set("Sec-WebSocket-Accept", acceptKey)
	writer.WriteHeader(http.StatusSwitchingProtocols)

	hijacker, ok := writer.(http.Hijacker)
	if !ok {
		log.Error("web server does not support hijacking", "error", http.StatusText(http.StatusInternalServerError))
		return
	}

	rawConn, bufrw, err := hijacker.Hijack()
	if err != nil {
		log.Error("failed to hijack connection", "error", err)
		return
	}

	defer rawConn.Close()

	conn := &connection{token: token, bufrw: bufrw}
	defer that.unregisterConnection(conn)

	log.Info("WebSocket connection established", "token", token)

	if err = that.handleMessages(ctx, conn); err != nil {
		log.Error("error handling messages", "error", err)
	}
}

// handleMessages - processes messages from the client until the peer drops
// the connection or sends something unparseable.
func (that *Server) handleMessages(ctx context.Context, conn *connection) error {
	log := that.logger.With("method", "handleMessages", "token", conn.token)

	for {
		reqBody, err := that.readRequest(conn.bufrw)
		if err != nil {
			log.Error("error reading message", "error", err)
			return err
		}

		var message Message
		if err = json.Unmarshal(reqBody, &message); err != nil {
			// a peer that cannot frame JSON loses only its own connection
			return fmt.Errorf("failed to unmarshal message: %w", err)
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Error("unknown action", "action", message.Action)

			if err = that.sendErrorResponse(conn, message.Action, "unknown action"); err != nil {
				return err
			}
			continue
		}

		if err = handler(ctx, conn, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

// registerConnection binds a joined player's connection to its session so
// broadcasts can reach it.
func (that *Server) registerConnection(conn *connection, playerID string) {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	conn.playerID = playerID

	peers, ok := that.connections[conn.token]
	if !ok {
		peers = make(map[string]*connection)
		that.connections[conn.token] = peers
	}

	peers[playerID] = conn
}

// unregisterConnection drops the connection from the registry. Session state
// is untouched; the peer may reconnect with the same identity.
func (that *Server) unregisterConnection(conn *connection) {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	peers, ok := that.connections[conn.token]
	if !ok {
		return
	}

	if current, found := peers[conn.playerID]; found && current == conn {
		delete(peers, conn.playerID)
	}

	if len(peers) == 0 {
		delete(that.connections, conn.token)
	}
}

// broadcastSession fans the authoritative snapshot out to every connected
// peer of the session. Each recipient also gets its own player record, so a
// joining peer learns its assigned mark.
func (that *Server) broadcastSession(action string, session *entity.Session) {
	log := that.logger.With("method", "broadcastSession", "token", session.Token)

	that.connectionsMutex.RLock()
	peers := make([]*connection, 0, len(that.connections[session.Token]))
	for _, conn := range that.connections[session.Token] {
		peers = append(peers, conn)
	}
	that.connectionsMutex.RUnlock()

	for _, conn := range peers {
		payload := Payload{
			Player:  session.PlayerByID(conn.playerID),
			Session: newSessionPayload(session),
		}

		if err := that.sendMessage(conn, action, payload); err != nil {
			log.Error("failed to send session update", "playerID", conn.playerID, "error", err)
		}
	}
}

// GenerateAcceptKey - generates the Sec-WebSocket-Accept key for the handshake.
func GenerateAcceptKey(key string) string {
	h := sha1.New() //nolint: gosec // RFC 6455 requires the use of SHA-1 for WebSocket

	h.Write([]byte(key + websocketGUID))

	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
