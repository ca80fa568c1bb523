// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/eights/internal/database"
	"github.com/jason-s-yu/eights/internal/game"
	"github.com/jason-s-yu/eights/internal/models"
	"github.com/sirupsen/logrus"
)

// createGameRequest is the optional body of POST /game/create.
type createGameRequest struct {
	Start bool `json:"start"`
}

// gameResponse is returned by the game endpoints.
type gameResponse struct {
	GameID  uuid.UUID          `json:"game_id"`
	Applied *bool              `json:"applied,omitempty"`
	State   *game.ObfGameState `json:"state"`
}

// CreateGameHandler creates a game owned by the caller, issuing a guest session if needed.
func CreateGameHandler(logger logrus.FieldLogger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := EnsureEphemeralUser(w, r, logger)
		if err != nil {
			logger.WithError(err).Error("could not establish guest session")
			http.Error(w, "could not establish session", http.StatusInternalServerError)
			return
		}

		var req createGameRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid JSON body", http.StatusBadRequest)
				return
			}
		}

		g := gs.NewEightsGame(userID)
		if req.Start {
			g.Start()
		}
		view := g.View()
		writeJSON(w, http.StatusCreated, gameResponse{GameID: g.ID, State: &view})
	}
}

// GetGameHandler returns the caller's view of one of their games.
func GetGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, ok := ownedGame(w, r, gs)
		if !ok {
			return
		}
		view := g.View()
		writeJSON(w, http.StatusOK, gameResponse{GameID: g.ID, State: &view})
	}
}

// GameActionHandler applies one intent over plain HTTP. Rejected intents are
// not errors: the response reports applied=false with the unchanged state.
func GameActionHandler(logger logrus.FieldLogger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, ok := ownedGame(w, r, gs)
		if !ok {
			return
		}
		var msg GameMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		action, err := msg.toAction()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		applied := g.HandlePlayerAction(action)
		if !applied {
			logger.WithFields(logrus.Fields{"game_id": g.ID, "action": action.ActionType}).Debug("intent rejected")
		}
		view := g.View()
		writeJSON(w, http.StatusOK, gameResponse{GameID: g.ID, Applied: &applied, State: &view})
	}
}

// DeleteGameHandler ends and forgets one of the caller's games.
func DeleteGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, ok := ownedGame(w, r, gs)
		if !ok {
			return
		}
		gs.RemoveGame(g.ID)
		w.WriteHeader(http.StatusNoContent)
	}
}

// StatsHandler reports the caller's win/loss record.
func StatsHandler(logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := AuthenticatedUser(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		stats, err := database.GetPlayerStats(r.Context(), userID)
		if errors.Is(err, database.ErrNoDatabase) {
			http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
			return
		}
		if err != nil {
			logger.WithError(err).Error("stats query failed")
			http.Error(w, "stats query failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// ownedGame resolves {id} and checks the caller owns it, writing the error response otherwise.
func ownedGame(w http.ResponseWriter, r *http.Request, gs *GameServer) (*game.EightsGame, bool) {
	userID, err := AuthenticatedUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	gameID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid game_id format", http.StatusBadRequest)
		return nil, false
	}
	g, ok := gs.GameStore.GetGame(gameID)
	if !ok {
		http.Error(w, "game not found", http.StatusNotFound)
		return nil, false
	}
	if g.OwnerID != userID {
		http.Error(w, "not your game", http.StatusForbidden)
		return nil, false
	}
	return g, true
}

// actionNames maps short client message types to game actions.
var actionNames = map[string]string{
	"start":       models.ActionStart,
	"draw":        models.ActionDraw,
	"play":        models.ActionPlay,
	"choose_suit": models.ActionChooseSuit,
}
