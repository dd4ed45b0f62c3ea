// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/cyberchess/server/internal/game"
	"github.com/cyberchess/server/internal/middleware"
)

// GameMessage is the structure for incoming WebSocket messages during a
// session. Moves are UCI ("e2e4") with SAN accepted as a fallback.
type GameMessage struct {
	Type string `json:"type"`
	Move string `json:"move,omitempty"`
}

// GameWSHandler upgrades the connection for a session: /game/ws/{session_id}.
// It authenticates via the auth_token cookie, verifies the account is a
// participant, attaches a push subscriber, and reads move/resign messages
// until the connection closes. Rejected moves produce error events; the
// connection stays open.
func (s *Server) GameWSHandler(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/game/ws/"), "/")
	sessionID, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "invalid session_id in path (/game/ws/{session_id})", http.StatusBadRequest)
		return
	}

	session, ok := s.Registry.GetSession(sessionID)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"game"},
		OriginPatterns: []string{"*"}, // Adjust for production security.
	})
	if err != nil {
		s.Log.Warnf("WebSocket accept error for session %s: %v", sessionID, err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "internal server error during handler exit")

	if c.Subprotocol() != "game" {
		c.Close(websocket.StatusCode(BadSubprotocolError), "client must use the 'game' subprotocol")
		return
	}

	accountID, err := authenticate(r)
	if err != nil {
		c.Close(websocket.StatusCode(InvalidAuthTokenError), "authentication failed")
		return
	}
	if session.WhiteID != accountID && session.BlackID != accountID {
		c.Close(websocket.StatusCode(NotParticipantError), "you are not a participant of this session")
		return
	}

	middleware.LogWebSocketConnect(s.Log, r.RemoteAddr, sessionID.String())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := session.Attach(accountID)
	defer session.Detach(sub)

	// Writer pump: session events out to the client. Exits when Detach
	// closes the channel or a write fails.
	go func() {
		for ev := range sub.Out {
			data, err := json.Marshal(ev)
			if err != nil {
				s.Log.WithError(err).Error("failed to marshal session event")
				continue
			}
			writeCtx, writeCancel := context.WithTimeout(context.Background(), 3*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			writeCancel()
			if err != nil {
				cancel()
				return
			}
		}
	}()

	readErr := s.readGameMessages(ctx, c, sessionID, accountID)
	middleware.LogWebSocketDisconnect(s.Log, r.RemoteAddr, sessionID.String(), readErr)
}

// readGameMessages processes client messages until error or cancellation.
func (s *Server) readGameMessages(ctx context.Context, c *websocket.Conn, sessionID, accountID uuid.UUID) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWsError(c, "invalid JSON format")
			continue
		}

		switch msg.Type {
		case "move":
			if msg.Move == "" {
				sendWsError(c, "move message requires a move field")
				continue
			}
			if _, err := s.Registry.SubmitMove(ctx, sessionID, accountID, msg.Move); err != nil {
				sendWsError(c, moveErrorMessage(err))
			}
			// Accepted moves reach the client through the subscriber channel.

		case "resign":
			if err := s.Registry.Resign(ctx, sessionID, accountID); err != nil {
				sendWsError(c, moveErrorMessage(err))
			}

		case "ping":
			sendWsMessage(c, map[string]string{"type": "pong"})

		default:
			sendWsError(c, "unknown message type: "+msg.Type)
		}
	}
}

func moveErrorMessage(err error) string {
	switch {
	case errors.Is(err, game.ErrSessionNotActive):
		return "session is not active"
	case errors.Is(err, game.ErrNotYourTurn):
		return "not your turn"
	case errors.Is(err, game.ErrIllegalMove):
		return "illegal move"
	case errors.Is(err, game.ErrNotParticipant):
		return "you are not a participant of this session"
	}
	return "could not process request"
}

// sendWsMessage marshals a message and sends it with a write timeout. Write
// failures are left for the read loop to detect as connection closure.
func sendWsMessage(c *websocket.Conn, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.Write(ctx, websocket.MessageText, data)
}

// sendWsError sends a structured error event to the client.
func sendWsError(c *websocket.Conn, errorMsg string) {
	sendWsMessage(c, map[string]string{
		"type":    game.EventError,
		"message": errorMsg,
	})
}
