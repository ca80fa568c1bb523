package models

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus tracks where a game is in its lifecycle.
type GameStatus string

const (
	StatusWaiting   GameStatus = "waiting"
	StatusPlaying   GameStatus = "playing"
	StatusPlayerWon GameStatus = "player_won"
	StatusAIWon     GameStatus = "ai_won"
)

// Terminal reports whether the game has been decided.
func (s GameStatus) Terminal() bool {
	return s == StatusPlayerWon || s == StatusAIWon
}

// WinStatus is the terminal status reached when actor empties their hand.
func WinStatus(actor Actor) GameStatus {
	if actor == ActorPlayer {
		return StatusPlayerWon
	}
	return StatusAIWon
}

// GameSnapshot is a detached copy of the full game state. Mutating it has no
// effect on the game it was taken from.
type GameSnapshot struct {
	Deck                []Card     `json:"deck"`
	PlayerHand          []Card     `json:"playerHand"`
	AIHand              []Card     `json:"aiHand"`
	DiscardPile         []Card     `json:"discardPile"`
	CurrentSuit         Suit       `json:"currentSuit,omitempty"`
	CurrentRank         Rank       `json:"currentRank,omitempty"`
	Turn                Actor      `json:"turn"`
	Status              GameStatus `json:"status"`
	IsSuitSelectionOpen bool       `json:"isSuitSelectionOpen"`
	PendingEight        *Card      `json:"pendingEight,omitempty"`
}

// TopDiscard returns the active discard, or nil before the first deal.
func (s GameSnapshot) TopDiscard() *Card {
	if len(s.DiscardPile) == 0 {
		return nil
	}
	c := s.DiscardPile[len(s.DiscardPile)-1]
	return &c
}

// GameResult is the outcome of a finished game, written once when a hand empties.
type GameResult struct {
	GameID      uuid.UUID  `json:"game_id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Winner      Actor      `json:"winner"`
	Status      GameStatus `json:"status"`
	Turns       int        `json:"turns"`
	PlayerCards int        `json:"player_cards"`
	AICards     int        `json:"ai_cards"`
	Reshuffles  int        `json:"reshuffles"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     time.Time  `json:"ended_at"`
}
