// internal/game/game.go
package game

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/eights/internal/cache"
	"github.com/jason-s-yu/eights/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultOpponentDelay is how long the opponent "thinks" before acting.
const DefaultOpponentDelay = time.Second

// OnGameEndFunc receives the outcome of a finished game, e.g. to persist it.
type OnGameEndFunc func(result models.GameResult)

// ActionPublisher ships action records to the historian queue.
type ActionPublisher interface {
	PublishGameAction(ctx context.Context, record cache.GameActionRecord) error
}

// GameEventType is an enum-like type for broadcasting game actions.
type GameEventType string

const (
	EventGameStart              GameEventType = "game_start"
	EventPlayerDraw             GameEventType = "player_draw"
	EventGameReshuffleStockpile GameEventType = "game_reshuffle_stockpile"
	EventPlayerPass             GameEventType = "player_pass"
	EventPlayerPlay             GameEventType = "player_play"
	EventPlayerSuitPrompt       GameEventType = "player_suit_prompt"
	EventGameEnd                GameEventType = "game_end"
	EventPrivateSyncState       GameEventType = "private_sync_state"
)

// EventCard identifies a card inside a GameEvent. Rank and Suit are omitted
// for cards the human is not allowed to see.
type EventCard struct {
	ID   uuid.UUID   `json:"id"`
	Rank models.Rank `json:"rank,omitempty"`
	Suit models.Suit `json:"suit,omitempty"`
}

// GameEvent is pushed to the presentation layer after every transition. State
// always carries the post-transition player view.
type GameEvent struct {
	Type    GameEventType          `json:"type"`
	Actor   models.Actor           `json:"actor,omitempty"`
	Card    *EventCard             `json:"card,omitempty"`
	Suit    models.Suit            `json:"suit,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	State   *ObfGameState          `json:"state,omitempty"`
}

// EightsGame holds the entire state for a single human-vs-opponent game in memory.
// Exported methods take Mu themselves; lowercase helpers assume it is held.
type EightsGame struct {
	ID      uuid.UUID
	OwnerID uuid.UUID // guest that created the game; only they may drive it

	Deck        []*models.Card
	PlayerHand  []*models.Card
	AIHand      []*models.Card
	DiscardPile []*models.Card

	CurrentSuit models.Suit
	CurrentRank models.Rank
	Turn        models.Actor
	Status      models.GameStatus

	// Suit prompt sub-state: the player clicked an eight and owes a suit.
	SuitSelectionOpen bool
	PendingEight      *models.Card

	// TurnID increments every time the turn changes hands.
	TurnID int
	// OpponentDelay paces the opponent. Zero runs it synchronously.
	OpponentDelay time.Duration

	Reshuffles int
	StartedAt  time.Time
	EndedAt    time.Time

	Mu sync.Mutex

	Logger logrus.FieldLogger

	// BroadcastFn receives every event. It runs with Mu held and must not call back into the game.
	BroadcastFn func(ev GameEvent)

	// OnGameEnd is invoked once per finished game.
	OnGameEnd OnGameEndFunc

	// History receives an action record per transition. Nil disables it.
	History ActionPublisher

	rng           *rand.Rand
	generation    int // bumped by Start and Close; stale opponent timers compare against it
	opponentTimer *time.Timer
	actionIndex   int
	lastActivity  time.Time
}

// NewEightsGame builds a waiting game owned by ownerID. seed==0 shuffles from the clock.
func NewEightsGame(ownerID uuid.UUID, seed int64) *EightsGame {
	id, _ := uuid.NewRandom()
	g := &EightsGame{
		ID:            id,
		OwnerID:       ownerID,
		Deck:          []*models.Card{},
		PlayerHand:    []*models.Card{},
		AIHand:        []*models.Card{},
		DiscardPile:   []*models.Card{},
		Turn:          models.ActorPlayer,
		Status:        models.StatusWaiting,
		OpponentDelay: DefaultOpponentDelay,
		rng:           NewShuffler(seed),
		lastActivity:  time.Now(),
	}
	g.Logger = logrus.StandardLogger().WithField("game_id", id)
	return g
}

// Start deals a fresh game, discarding whatever was in progress.
func (g *EightsGame) Start() {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.start()
}

func (g *EightsGame) start() {
	g.deal(CreateDeck(g.rng))
}

// deal lays out a new game from deck, which must hold all 52 cards.
func (g *EightsGame) deal(deck []*models.Card) {
	g.stopOpponentTimer()
	g.generation++

	g.PlayerHand = append([]*models.Card{}, deck[:HandSize]...)
	g.AIHand = append([]*models.Card{}, deck[HandSize:2*HandSize]...)
	rest := deck[2*HandSize:]

	seed := -1
	for i, c := range rest {
		if !c.IsEight() {
			seed = i
			break
		}
	}
	if seed < 0 {
		panic(fmt.Sprintf("game %s: no non-eight left to seed the discard pile (%d cards)", g.ID, len(rest)))
	}
	first := rest[seed]
	g.Deck = removeCardAt(rest, seed)
	g.DiscardPile = []*models.Card{first}

	g.CurrentSuit = first.Suit
	g.CurrentRank = first.Rank
	g.Turn = models.ActorPlayer
	g.Status = models.StatusPlaying
	g.SuitSelectionOpen = false
	g.PendingEight = nil
	g.TurnID = 0
	g.Reshuffles = 0
	g.StartedAt = time.Now()
	g.EndedAt = time.Time{}

	g.Logger.WithFields(logrus.Fields{
		"top":      first.String(),
		"deckSize": len(g.Deck),
	}).Info("game started")
	g.logAction(models.ActorPlayer, string(EventGameStart), map[string]interface{}{
		"top":       buildEventCard(first, true),
		"skipped8s": seed,
	})
	g.commit(GameEvent{Type: EventGameStart, Card: buildEventCard(first, true)})
}

// Draw is the human's draw intent. It reports whether anything changed.
func (g *EightsGame) Draw() bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.draw(models.ActorPlayer)
}

// draw takes the top card for actor and ends their turn. With an empty deck
// the turn is spent reshuffling the discard pile instead.
func (g *EightsGame) draw(actor models.Actor) bool {
	if g.Status != models.StatusPlaying || g.SuitSelectionOpen || actor != g.Turn {
		return false
	}

	if len(g.Deck) == 0 {
		reshuffled := g.reshuffle()
		g.passTurn()
		if reshuffled {
			g.logAction(actor, string(EventGameReshuffleStockpile), map[string]interface{}{"newSize": len(g.Deck)})
			g.commit(GameEvent{
				Type:    EventGameReshuffleStockpile,
				Actor:   actor,
				Payload: map[string]interface{}{"stockpileSize": len(g.Deck)},
			})
		} else {
			g.logAction(actor, string(EventPlayerPass), nil)
			g.commit(GameEvent{Type: EventPlayerPass, Actor: actor})
		}
		return true
	}

	card := g.Deck[len(g.Deck)-1]
	g.Deck = g.Deck[:len(g.Deck)-1]
	if actor == models.ActorPlayer {
		g.PlayerHand = append(g.PlayerHand, card)
	} else {
		g.AIHand = append(g.AIHand, card)
	}
	g.passTurn()

	g.logAction(actor, string(EventPlayerDraw), map[string]interface{}{"card": buildEventCard(card, true)})
	g.commit(GameEvent{
		Type:  EventPlayerDraw,
		Actor: actor,
		Card:  buildEventCard(card, actor == models.ActorPlayer),
	})
	return true
}

// reshuffle turns everything under the top discard into a new deck.
// Returns false when there is nothing to reshuffle.
func (g *EightsGame) reshuffle() bool {
	if len(g.DiscardPile) <= 1 {
		g.Logger.Warn("deck and discard pile exhausted, passing turn")
		return false
	}
	top := g.DiscardPile[len(g.DiscardPile)-1]
	under := append([]*models.Card{}, g.DiscardPile[:len(g.DiscardPile)-1]...)
	shuffleCards(g.rng, under)
	g.Deck = append(g.Deck, under...)
	g.DiscardPile = []*models.Card{top}
	g.Reshuffles++
	g.Logger.WithField("deckSize", len(g.Deck)).Info("reshuffled discard pile into deck")
	return true
}

// AttemptPlay is the human clicking a card. A legal eight opens the suit
// prompt instead of being played.
func (g *EightsGame) AttemptPlay(cardID uuid.UUID) bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.Status != models.StatusPlaying || g.Turn != models.ActorPlayer || g.SuitSelectionOpen {
		return false
	}
	idx := indexOfCard(g.PlayerHand, cardID)
	if idx < 0 {
		return false
	}
	card := g.PlayerHand[idx]
	if !IsLegalPlay(card, g.CurrentSuit, g.CurrentRank) {
		return false
	}
	if card.IsEight() {
		g.SuitSelectionOpen = true
		g.PendingEight = card
		g.logAction(models.ActorPlayer, string(EventPlayerSuitPrompt), map[string]interface{}{"card": buildEventCard(card, true)})
		g.commit(GameEvent{Type: EventPlayerSuitPrompt, Actor: models.ActorPlayer, Card: buildEventCard(card, true)})
		return true
	}
	return g.play(card, models.ActorPlayer, "")
}

// ChooseSuit resolves a pending eight with suit.
func (g *EightsGame) ChooseSuit(suit models.Suit) bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.Status != models.StatusPlaying || !g.SuitSelectionOpen || g.PendingEight == nil || !suit.Valid() {
		return false
	}
	// play closes the prompt and clears the staged card.
	return g.play(g.PendingEight, models.ActorPlayer, suit)
}

// play moves card from actor's hand to the discard pile. Player cards are
// checked for legality; the opponent's are trusted.
func (g *EightsGame) play(card *models.Card, actor models.Actor, chosenSuit models.Suit) bool {
	if g.Status != models.StatusPlaying || actor != g.Turn {
		return false
	}
	hand := g.handOf(actor)
	idx := indexOfCard(*hand, card.ID)
	if idx < 0 {
		return false
	}
	card = (*hand)[idx]
	if actor == models.ActorPlayer && !IsLegalPlay(card, g.CurrentSuit, g.CurrentRank) {
		return false
	}
	suit, rank, err := ResolvePlay(card, chosenSuit)
	if err != nil {
		g.Logger.WithError(err).Debug("play rejected")
		return false
	}

	*hand = removeCardAt(*hand, idx)
	g.DiscardPile = append(g.DiscardPile, card)
	g.CurrentSuit = suit
	g.CurrentRank = rank
	g.SuitSelectionOpen = false
	g.PendingEight = nil

	won := IsWin(*hand)
	if won {
		g.Status = models.WinStatus(actor)
	} else {
		g.passTurn()
	}

	payload := map[string]interface{}{"card": buildEventCard(card, true), "handSize": len(*hand)}
	ev := GameEvent{Type: EventPlayerPlay, Actor: actor, Card: buildEventCard(card, true)}
	if card.IsEight() {
		payload["suit"] = suit
		ev.Suit = suit
	}
	g.logAction(actor, string(EventPlayerPlay), payload)
	g.commit(ev)
	if won {
		g.endGame(actor)
	}
	return true
}

// HandlePlayerAction routes a client intent to the matching operation.
func (g *EightsGame) HandlePlayerAction(action models.GameAction) bool {
	switch action.ActionType {
	case models.ActionStart:
		g.Start()
		return true
	case models.ActionDraw:
		return g.Draw()
	case models.ActionPlay:
		return g.AttemptPlay(action.CardID)
	case models.ActionChooseSuit:
		return g.ChooseSuit(action.Suit)
	default:
		g.Logger.Warnf("unknown action type %q", action.ActionType)
		return false
	}
}

// Close stops any pending opponent action. The game accepts Start again afterwards.
func (g *EightsGame) Close() {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.stopOpponentTimer()
	g.generation++
}

// LastActivity reports when the game last changed.
func (g *EightsGame) LastActivity() time.Time {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.lastActivity
}

// handOf returns a pointer to actor's hand so callers can replace the slice.
func (g *EightsGame) handOf(actor models.Actor) *[]*models.Card {
	if actor == models.ActorPlayer {
		return &g.PlayerHand
	}
	return &g.AIHand
}

// passTurn hands the turn to the other seat.
func (g *EightsGame) passTurn() {
	g.Turn = g.Turn.Other()
	g.TurnID++
}

// commit checks invariants, notifies listeners and wakes the opponent if it is now their turn.
func (g *EightsGame) commit(ev GameEvent) {
	g.assertInvariants()
	g.lastActivity = time.Now()
	view := g.view()
	ev.State = &view
	g.fireEvent(ev)
	g.scheduleOpponent()
}

// scheduleOpponent arranges exactly one opponent action for the current turn.
func (g *EightsGame) scheduleOpponent() {
	if g.Status != models.StatusPlaying || g.Turn != models.ActorAI {
		return
	}
	if g.OpponentDelay <= 0 {
		g.opponentTurn()
		return
	}
	g.stopOpponentTimer()
	gen, turnID := g.generation, g.TurnID
	g.opponentTimer = time.AfterFunc(g.OpponentDelay, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		// A new game or an already-taken turn makes this callback stale.
		if g.generation != gen || g.TurnID != turnID || g.Turn != models.ActorAI || g.Status != models.StatusPlaying {
			g.Logger.WithField("turn", turnID).Debug("stale opponent timer ignored")
			return
		}
		g.opponentTimer = nil
		g.opponentTurn()
	})
}

// opponentTurn applies the policy's move.
func (g *EightsGame) opponentTurn() {
	move := ChooseMove(g.AIHand, g.CurrentSuit, g.CurrentRank)
	if move.Draw {
		g.draw(models.ActorAI)
		return
	}
	g.Logger.WithFields(logrus.Fields{"card": move.Card.String(), "suit": move.Suit}).Debug("opponent plays")
	g.play(move.Card, models.ActorAI, move.Suit)
}

func (g *EightsGame) stopOpponentTimer() {
	if g.opponentTimer != nil {
		g.opponentTimer.Stop()
		g.opponentTimer = nil
	}
}

// endGame records the result of a decided game.
func (g *EightsGame) endGame(winner models.Actor) {
	g.stopOpponentTimer()
	g.EndedAt = time.Now()
	result := models.GameResult{
		GameID:      g.ID,
		OwnerID:     g.OwnerID,
		Winner:      winner,
		Status:      g.Status,
		Turns:       g.TurnID,
		PlayerCards: len(g.PlayerHand),
		AICards:     len(g.AIHand),
		Reshuffles:  g.Reshuffles,
		StartedAt:   g.StartedAt,
		EndedAt:     g.EndedAt,
	}
	g.Logger.WithFields(logrus.Fields{
		"winner":   winner,
		"turns":    result.Turns,
		"aiCards":  result.AICards,
		"youCards": result.PlayerCards,
	}).Info("game over")
	g.logAction(winner, string(EventGameEnd), map[string]interface{}{
		"winner": winner,
		"turns":  result.Turns,
	})
	view := g.view()
	g.fireEvent(GameEvent{
		Type:    EventGameEnd,
		Actor:   winner,
		Payload: map[string]interface{}{"winner": winner, "turns": result.Turns},
		State:   &view,
	})
	if g.OnGameEnd != nil {
		g.OnGameEnd(result)
	}
}

// assertInvariants panics when card conservation or the prompt sub-state is broken.
func (g *EightsGame) assertInvariants() {
	if g.Status == models.StatusWaiting {
		return
	}
	seen := make(map[uuid.UUID]struct{}, DeckSize)
	for _, pile := range [][]*models.Card{g.Deck, g.PlayerHand, g.AIHand, g.DiscardPile} {
		for _, c := range pile {
			if _, dup := seen[c.ID]; dup {
				panic(fmt.Sprintf("game %s: card %s (%s) appears twice", g.ID, c.ID, c))
			}
			seen[c.ID] = struct{}{}
		}
	}
	if len(seen) != DeckSize {
		panic(fmt.Sprintf("game %s: %d cards in play, want %d", g.ID, len(seen), DeckSize))
	}
	if len(g.DiscardPile) == 0 {
		panic(fmt.Sprintf("game %s: empty discard pile while %s", g.ID, g.Status))
	}
	if g.SuitSelectionOpen && (g.Status != models.StatusPlaying || g.PendingEight == nil) {
		panic(fmt.Sprintf("game %s: suit prompt open without a pending eight", g.ID))
	}
	if g.Status.Terminal() != (len(g.PlayerHand) == 0 || len(g.AIHand) == 0) {
		panic(fmt.Sprintf("game %s: status %s with hands %d/%d", g.ID, g.Status, len(g.PlayerHand), len(g.AIHand)))
	}
}

// fireEvent hands ev to the broadcaster, if any.
func (g *EightsGame) fireEvent(ev GameEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	}
}

// logAction sends the action details to the historian queue.
func (g *EightsGame) logAction(actor models.Actor, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if g.History == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.GameActionRecord{
		GameID:        g.ID,
		ActionIndex:   g.actionIndex,
		Actor:         string(actor),
		OwnerID:       g.OwnerID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(h ActionPublisher, rec cache.GameActionRecord, logger logrus.FieldLogger) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.PublishGameAction(ctx, rec); err != nil {
			logger.WithError(err).Warnf("failed to publish action %d", rec.ActionIndex)
		}
	}(g.History, record, g.Logger)
}
