// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/eights/internal/game"
	"github.com/jason-s-yu/eights/internal/middleware"
	"github.com/jason-s-yu/eights/internal/models"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the websocket subprotocol clients must request.
const Subprotocol = "eights"

// GameMessage represents an incoming client message.
type GameMessage struct {
	// Type is one of start, draw, play, choose_suit, ping (or the action_* names).
	Type string `json:"type"`
	// CardID names the clicked card for play.
	CardID string `json:"card_id,omitempty"`
	// Suit is the chosen suit for choose_suit.
	Suit string `json:"suit,omitempty"`
}

// toAction validates the message and converts it to a game action.
func (m GameMessage) toAction() (models.GameAction, error) {
	actionType, ok := actionNames[m.Type]
	if !ok {
		switch m.Type {
		case models.ActionStart, models.ActionDraw, models.ActionPlay, models.ActionChooseSuit:
			actionType = m.Type
		default:
			return models.GameAction{}, fmt.Errorf("unknown action type: %s", m.Type)
		}
	}
	action := models.GameAction{ActionType: actionType}
	switch actionType {
	case models.ActionPlay:
		id, err := uuid.Parse(m.CardID)
		if err != nil {
			return action, fmt.Errorf("invalid card_id: %q", m.CardID)
		}
		action.CardID = id
	case models.ActionChooseSuit:
		suit, err := game.ParseSuit(m.Suit)
		if err != nil {
			return action, err
		}
		action.Suit = suit
	}
	return action, nil
}

// GameWSHandler upgrades the HTTP connection to WebSocket for one of the caller's games.
// The caller must already hold a guest cookie (issued by /game/create) and own the game.
// origins is the same allow list CORS uses; same-host requests are always accepted.
func GameWSHandler(logger logrus.FieldLogger, gs *GameServer, origins []string) http.HandlerFunc {
	patterns := originPatterns(origins)
	return func(w http.ResponseWriter, r *http.Request) {
		g, ok := ownedGame(w, r, gs)
		if !ok {
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: patterns,
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for game %s: %v", g.ID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "Client must use the 'eights' subprotocol.")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		cl := gs.attach(g.ID, c)
		go cl.writeLoop(ctx, logger.WithField("game_id", g.ID))
		gs.push(cl, game.EventBytes(g.SyncEvent()))

		err = readGameMessages(ctx, c, g, logger.WithField("game_id", g.ID))

		gs.detach(g.ID, cl)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// originPatterns converts allowed origins ("https://app.example.com") into the
// host patterns websocket.Accept matches against.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}

// readGameMessages reads client intents until the connection closes and applies
// them to g. Rejected intents are logged and otherwise ignored.
func readGameMessages(ctx context.Context, c *websocket.Conn, g *game.EightsGame, logger logrus.FieldLogger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			logger.Warnf("Received non-text message type %d. Ignoring.", msgType)
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWsError(ctx, c, "Invalid JSON format.")
			continue
		}
		if msg.Type == "ping" {
			sendWsMessage(ctx, c, map[string]string{"type": "pong"})
			continue
		}

		action, err := msg.toAction()
		if err != nil {
			sendWsError(ctx, c, err.Error())
			continue
		}
		if !g.HandlePlayerAction(action) {
			logger.WithField("action", action.ActionType).Debug("intent rejected")
		}
	}
}

// sendWsMessage marshals a message and writes it straight to the client with a timeout.
func sendWsMessage(ctx context.Context, c *websocket.Conn, message interface{}) {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		logrus.WithError(err).Error("error marshaling WebSocket message")
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Write(writeCtx, websocket.MessageText, msgBytes); err != nil {
		logrus.WithError(err).Debug("error writing WebSocket message")
	}
}

// sendWsError sends a structured error message to the client.
func sendWsError(ctx context.Context, c *websocket.Conn, errorMsg string) {
	sendWsMessage(ctx, c, map[string]interface{}{
		"type":    "error",
		"message": errorMsg,
	})
}
