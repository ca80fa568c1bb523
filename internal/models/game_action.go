package models

import "github.com/google/uuid"

// Action types a client may send for its own game.
const (
	ActionStart      = "action_start"
	ActionDraw       = "action_draw"
	ActionPlay       = "action_play"
	ActionChooseSuit = "action_choose_suit"
)

// GameAction captures a player's intent: start a game, draw, click a card
// or pick a suit for a pending eight.
type GameAction struct {
	ActionType string    `json:"action_type"`
	CardID     uuid.UUID `json:"card_id,omitempty"`
	Suit       Suit      `json:"suit,omitempty"`
}
