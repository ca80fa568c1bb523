// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/eights/internal/models"
)

// ObfCard is a card as the human may see it. Known is false for face-down cards.
type ObfCard struct {
	ID    uuid.UUID   `json:"id"`
	Known bool        `json:"known"`
	Rank  models.Rank `json:"rank,omitempty"`
	Suit  models.Suit `json:"suit,omitempty"`
	Idx   int         `json:"idx"`
}

// ObfGameState is the board from the human's seat: their own hand face up,
// the opponent's hand and the deck reduced to counts.
type ObfGameState struct {
	GameID              uuid.UUID         `json:"game_id"`
	Status              models.GameStatus `json:"status"`
	Turn                models.Actor      `json:"turn"`
	TurnID              int               `json:"turn_id"`
	CurrentSuit         models.Suit       `json:"current_suit,omitempty"`
	CurrentRank         models.Rank       `json:"current_rank,omitempty"`
	StockpileSize       int               `json:"stockpile_size"`
	DiscardSize         int               `json:"discard_size"`
	DiscardTop          *ObfCard          `json:"discard_top,omitempty"`
	PlayerHand          []ObfCard         `json:"player_hand"`
	AIHandSize          int               `json:"ai_hand_size"`
	IsSuitSelectionOpen bool              `json:"is_suit_selection_open"`
	PendingEight        *ObfCard          `json:"pending_eight,omitempty"`
	// Playable lists the hand cards the human may click right now.
	Playable []uuid.UUID `json:"playable"`
}

// View returns the current board from the human's seat.
func (g *EightsGame) View() ObfGameState {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.view()
}

func (g *EightsGame) view() ObfGameState {
	obf := ObfGameState{
		GameID:              g.ID,
		Status:              g.Status,
		Turn:                g.Turn,
		TurnID:              g.TurnID,
		CurrentSuit:         g.CurrentSuit,
		CurrentRank:         g.CurrentRank,
		StockpileSize:       len(g.Deck),
		DiscardSize:         len(g.DiscardPile),
		PlayerHand:          make([]ObfCard, len(g.PlayerHand)),
		AIHandSize:          len(g.AIHand),
		IsSuitSelectionOpen: g.SuitSelectionOpen,
		Playable:            []uuid.UUID{},
	}
	if n := len(g.DiscardPile); n > 0 {
		top := g.DiscardPile[n-1]
		obf.DiscardTop = &ObfCard{ID: top.ID, Known: true, Rank: top.Rank, Suit: top.Suit}
	}
	if g.PendingEight != nil {
		obf.PendingEight = &ObfCard{ID: g.PendingEight.ID, Known: true, Rank: g.PendingEight.Rank, Suit: g.PendingEight.Suit}
	}
	myTurn := g.Status == models.StatusPlaying && g.Turn == models.ActorPlayer && !g.SuitSelectionOpen
	for i, c := range g.PlayerHand {
		obf.PlayerHand[i] = ObfCard{ID: c.ID, Known: true, Rank: c.Rank, Suit: c.Suit, Idx: i}
		if myTurn && IsLegalPlay(c, g.CurrentSuit, g.CurrentRank) {
			obf.Playable = append(obf.Playable, c.ID)
		}
	}
	return obf
}

// Snapshot returns a detached copy of the complete state, opponent hand included.
func (g *EightsGame) Snapshot() models.GameSnapshot {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	snap := models.GameSnapshot{
		Deck:                copyCards(g.Deck),
		PlayerHand:          copyCards(g.PlayerHand),
		AIHand:              copyCards(g.AIHand),
		DiscardPile:         copyCards(g.DiscardPile),
		CurrentSuit:         g.CurrentSuit,
		CurrentRank:         g.CurrentRank,
		Turn:                g.Turn,
		Status:              g.Status,
		IsSuitSelectionOpen: g.SuitSelectionOpen,
	}
	if g.PendingEight != nil {
		c := *g.PendingEight
		snap.PendingEight = &c
	}
	return snap
}

// SyncEvent wraps the current view for a client that just (re)connected.
func (g *EightsGame) SyncEvent() GameEvent {
	view := g.View()
	return GameEvent{Type: EventPrivateSyncState, State: &view}
}
