// internal/game/game_test.go
package game

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/eights/internal/cache"
	"github.com/jason-s-yu/eights/internal/models"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []GameEvent
}

func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = append(mb.events, ev)
}

func (mb *mockBroadcaster) types() []GameEventType {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	out := make([]GameEventType, len(mb.events))
	for i, ev := range mb.events {
		out[i] = ev.Type
	}
	return out
}

func (mb *mockBroadcaster) getLastEvent() *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.events) == 0 {
		return nil
	}
	return &mb.events[len(mb.events)-1]
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = nil
}

// setupTestGame builds a quiet game with a mock broadcaster and the given opponent delay.
func setupTestGame(t *testing.T, delay time.Duration) (*EightsGame, *mockBroadcaster) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	g := NewEightsGame(uuid.New(), 42)
	mb := &mockBroadcaster{}
	g.BroadcastFn = mb.broadcastFn
	g.Logger = logger
	g.OpponentDelay = delay
	t.Cleanup(g.Close)
	return g, mb
}

// arrange lays out a playing game with the player to move. Cards are named
// rank plus suit initial ("5h", "10s", "8c"). Every card not listed ends up
// under top on the discard pile, so all 52 stay in play.
func arrange(t *testing.T, g *EightsGame, player, ai, deck []string, top string) {
	t.Helper()
	pool := make(map[string]*models.Card, DeckSize)
	for _, key := range allSpecs() {
		suit, err := ParseSuit(key[len(key)-1:])
		require.NoError(t, err)
		pool[key] = &models.Card{ID: uuid.New(), Suit: suit, Rank: models.Rank(key[:len(key)-1])}
	}
	take := func(keys []string) []*models.Card {
		out := []*models.Card{}
		for _, k := range keys {
			card, ok := pool[k]
			require.True(t, ok, "unknown or reused card %s", k)
			delete(pool, k)
			out = append(out, card)
		}
		return out
	}

	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.PlayerHand = take(player)
	g.AIHand = take(ai)
	g.Deck = take(deck)
	topCard := take([]string{top})[0]
	var rest []string
	for _, k := range allSpecs() {
		if _, ok := pool[k]; ok {
			rest = append(rest, k)
		}
	}
	g.DiscardPile = append(take(rest), topCard)
	g.CurrentSuit, g.CurrentRank = topCard.Suit, topCard.Rank
	g.Turn = models.ActorPlayer
	g.Status = models.StatusPlaying
	g.SuitSelectionOpen = false
	g.PendingEight = nil
	g.TurnID = 0
	g.generation++
	g.assertInvariants()
}

func allSpecs() []string {
	var out []string
	for _, s := range models.Suits {
		for _, r := range models.Ranks {
			out = append(out, string(r)+string(s[0]))
		}
	}
	return out
}

// cardIn finds the card named key in pile.
func cardIn(t *testing.T, pile []*models.Card, key string) *models.Card {
	t.Helper()
	for _, c := range pile {
		if string(c.Rank)+string(c.Suit[0]) == key {
			return c
		}
	}
	t.Fatalf("card %s not found", key)
	return nil
}

func totalCards(s models.GameSnapshot) int {
	return len(s.Deck) + len(s.PlayerHand) + len(s.AIHand) + len(s.DiscardPile)
}

func TestStartDeals(t *testing.T) {
	g, mb := setupTestGame(t, time.Hour)
	g.Start()

	snap := g.Snapshot()
	assert.Equal(t, models.StatusPlaying, snap.Status)
	assert.Equal(t, models.ActorPlayer, snap.Turn)
	assert.Len(t, snap.PlayerHand, HandSize)
	assert.Len(t, snap.AIHand, HandSize)
	require.Len(t, snap.DiscardPile, 1)
	assert.Len(t, snap.Deck, DeckSize-2*HandSize-1)
	assert.Equal(t, DeckSize, totalCards(snap))

	top := snap.TopDiscard()
	assert.NotEqual(t, models.RankEight, top.Rank)
	assert.Equal(t, top.Suit, snap.CurrentSuit)
	assert.Equal(t, top.Rank, snap.CurrentRank)
	assert.False(t, snap.IsSuitSelectionOpen)

	ev := mb.getLastEvent()
	require.NotNil(t, ev)
	assert.Equal(t, EventGameStart, ev.Type)
	require.NotNil(t, ev.State)
	assert.Equal(t, HandSize, ev.State.AIHandSize)
}

func TestDealSkipsLeadingEights(t *testing.T) {
	g, _ := setupTestGame(t, time.Hour)

	var deck []*models.Card
	var eights []*models.Card
	for _, c := range CreateDeck(NewShuffler(5)) {
		if c.IsEight() {
			eights = append(eights, c)
		} else {
			deck = append(deck, c)
		}
	}
	// 16 dealt cards, then 8h 8d, then the first non-eight.
	ordered := append([]*models.Card{}, deck[:2*HandSize]...)
	ordered = append(ordered, eights[0], eights[1])
	ordered = append(ordered, deck[2*HandSize:]...)
	ordered = append(ordered, eights[2:]...)
	seed := deck[2*HandSize]

	g.Mu.Lock()
	g.deal(ordered)
	g.Mu.Unlock()

	snap := g.Snapshot()
	require.Len(t, snap.DiscardPile, 1)
	assert.Equal(t, seed.ID, snap.DiscardPile[0].ID)
	require.Len(t, snap.Deck, DeckSize-2*HandSize-1)
	assert.Equal(t, eights[0].ID, snap.Deck[0].ID, "leading eights stay in place")
	assert.Equal(t, eights[1].ID, snap.Deck[1].ID)
	assert.Equal(t, deck[0].ID, snap.PlayerHand[0].ID)
	assert.Equal(t, deck[HandSize].ID, snap.AIHand[0].ID)
}

func TestDealPanicsWithoutSeedCard(t *testing.T) {
	g, _ := setupTestGame(t, time.Hour)
	var short []*models.Card
	var eights []*models.Card
	for _, c := range CreateDeck(NewShuffler(2)) {
		if c.IsEight() {
			eights = append(eights, c)
		} else if len(short) < 2*HandSize {
			short = append(short, c)
		}
	}
	short = append(short, eights...)

	g.Mu.Lock()
	defer g.Mu.Unlock()
	assert.Panics(t, func() { g.deal(short) })
}

func TestIntentsRejectedBeforeStart(t *testing.T) {
	g, mb := setupTestGame(t, time.Hour)
	assert.False(t, g.Draw())
	assert.False(t, g.AttemptPlay(uuid.New()))
	assert.False(t, g.ChooseSuit(models.SuitHearts))
	assert.Empty(t, mb.types())
	assert.Equal(t, models.StatusWaiting, g.View().Status)
}

func TestDrawTakesTopAndPassesTurn(t *testing.T) {
	g, mb := setupTestGame(t, time.Hour)
	arrange(t, g, []string{"2c", "3c"}, []string{"4c", "5c"}, []string{"6d", "7d"}, "9h")
	top := cardIn(t, g.Deck, "7d")

	require.True(t, g.Draw())

	snap := g.Snapshot()
	assert.Len(t, snap.PlayerHand, 3)
	assert.Equal(t, top.ID, snap.PlayerHand[2].ID)
	assert.Len(t, snap.Deck, 1)
	assert.Equal(t, models.ActorAI, snap.Turn)
	assert.Equal(t, 1, g.View().TurnID)

	ev := mb.getLastEvent()
	require.NotNil(t, ev)
	assert.Equal(t, EventPlayerDraw, ev.Type)
	assert.Equal(t, models.ActorPlayer, ev.Actor)

	assert.False(t, g.Draw(), "not the player's turn")
}

func TestDrawReshufflesEmptyDeck(t *testing.T) {
	g, mb := setupTestGame(t, time.Hour)
	arrange(t, g, []string{"2c", "3c"}, []string{"4c", "5c"}, nil, "9h")
	top := cardIn(t, g.DiscardPile, "9h")

	require.True(t, g.Draw())

	snap := g.Snapshot()
	assert.Len(t, snap.PlayerHand, 2, "the reshuffle spends the turn")
	assert.Len(t, snap.Deck, DeckSize-5)
	require.Len(t, snap.DiscardPile, 1)
	assert.Equal(t, top.ID, snap.DiscardPile[0].ID)
	assert.Equal(t, models.ActorAI, snap.Turn)
	assert.Equal(t, 1, g.Reshuffles)
	assert.Equal(t, EventGameReshuffleStockpile, mb.getLastEvent().Type)
}

func TestDrawPassesWhenNothingToReshuffle(t *testing.T) {
	g, mb := setupTestGame(t, time.Hour)
	var rest []string
	for _, k := range allSpecs() {
		if k != "Kh" {
			rest = append(rest, k)
		}
	}
	arrange(t, g, rest[:26], rest[26:], nil, "Kh")

	require.True(t, g.Draw())

	snap := g.Snapshot()
	assert.Len(t, snap.PlayerHand, 26)
	assert.Empty(t, snap.Deck)
	assert.Len(t, snap.DiscardPile, 1)
	assert.Equal(t, models.ActorAI, snap.Turn)
	assert.Equal(t, EventPlayerPass, mb.getLastEvent().Type)
}

func TestIllegalPlayIsNoop(t *testing.T) {
	g, mb := setupTestGame(t, time.Hour)
	arrange(t, g, []string{"3c", "Kd"}, []string{"4c"}, []string{"6d"}, "5h")
	before := g.Snapshot()

	assert.False(t, g.AttemptPlay(cardIn(t, g.PlayerHand, "3c").ID))
	assert.False(t, g.AttemptPlay(uuid.New()))
	assert.False(t, g.AttemptPlay(cardIn(t, g.AIHand, "4c").ID), "cannot play the opponent's card")

	assert.Equal(t, before, g.Snapshot())
	assert.Empty(t, mb.types())
}

func TestEightOpensSuitPrompt(t *testing.T) {
	g, mb := setupTestGame(t, time.Hour)
	arrange(t, g, []string{"8s", "5d", "Kc"}, []string{"4c", "2d"}, []string{"6d"}, "5h")
	eight := cardIn(t, g.PlayerHand, "8s")

	require.True(t, g.AttemptPlay(eight.ID))

	v := g.View()
	assert.True(t, v.IsSuitSelectionOpen)
	require.NotNil(t, v.PendingEight)
	assert.Equal(t, eight.ID, v.PendingEight.ID)
	assert.Equal(t, models.ActorPlayer, v.Turn)
	assert.Len(t, v.PlayerHand, 3, "the eight stays in hand until a suit is chosen")
	assert.Empty(t, v.Playable)
	assert.Equal(t, EventPlayerSuitPrompt, mb.getLastEvent().Type)

	// Everything except a valid suit choice is ignored while the prompt is open.
	assert.False(t, g.Draw())
	assert.False(t, g.AttemptPlay(cardIn(t, g.PlayerHand, "5d").ID))
	assert.False(t, g.ChooseSuit("stars"))
	assert.True(t, g.View().IsSuitSelectionOpen)

	require.True(t, g.ChooseSuit(models.SuitClubs))
	snap := g.Snapshot()
	assert.False(t, snap.IsSuitSelectionOpen)
	assert.Nil(t, snap.PendingEight)
	assert.Equal(t, models.SuitClubs, snap.CurrentSuit)
	assert.Equal(t, models.RankEight, snap.CurrentRank)
	assert.Equal(t, eight.ID, snap.TopDiscard().ID)
	assert.Len(t, snap.PlayerHand, 2)
	assert.Equal(t, models.ActorAI, snap.Turn)

	ev := mb.getLastEvent()
	assert.Equal(t, EventPlayerPlay, ev.Type)
	assert.Equal(t, models.SuitClubs, ev.Suit)

	assert.False(t, g.ChooseSuit(models.SuitHearts), "no prompt open")
}

func TestPlayerWins(t *testing.T) {
	g, mb := setupTestGame(t, time.Hour)
	var result *models.GameResult
	g.OnGameEnd = func(r models.GameResult) { result = &r }
	arrange(t, g, []string{"5c"}, []string{"4d", "2d"}, []string{"6d"}, "5h")

	require.True(t, g.AttemptPlay(cardIn(t, g.PlayerHand, "5c").ID))

	v := g.View()
	assert.Equal(t, models.StatusPlayerWon, v.Status)
	assert.Empty(t, v.PlayerHand)
	assert.Equal(t, []GameEventType{EventPlayerPlay, EventGameEnd}, mb.types())

	require.NotNil(t, result)
	assert.Equal(t, models.ActorPlayer, result.Winner)
	assert.Equal(t, 2, result.AICards)
	assert.Equal(t, g.OwnerID, result.OwnerID)

	// Terminal: only Start does anything.
	mb.clear()
	before := g.Snapshot()
	assert.False(t, g.Draw())
	assert.False(t, g.AttemptPlay(g.AIHand[0].ID))
	assert.False(t, g.AttemptPlay(g.Deck[0].ID))
	assert.False(t, g.ChooseSuit(models.SuitClubs))
	assert.Equal(t, before, g.Snapshot())
	assert.Empty(t, mb.types())

	g.Start()
	assert.Equal(t, models.StatusPlaying, g.View().Status)
}

func TestOpponentRespondsSynchronously(t *testing.T) {
	g, mb := setupTestGame(t, 0)
	arrange(t, g, []string{"5c", "9d"}, []string{"2s", "Kc"}, []string{"6d"}, "5h")

	require.True(t, g.AttemptPlay(cardIn(t, g.PlayerHand, "5c").ID))

	snap := g.Snapshot()
	assert.Equal(t, models.ActorPlayer, snap.Turn)
	assert.Equal(t, "K", string(snap.TopDiscard().Rank))
	assert.Equal(t, models.SuitClubs, snap.CurrentSuit)
	assert.Len(t, snap.AIHand, 1)
	assert.Equal(t, []GameEventType{EventPlayerPlay, EventPlayerPlay}, mb.types())
	assert.Equal(t, 2, g.View().TurnID)
}

func TestOpponentDrawsWhenStuck(t *testing.T) {
	g, _ := setupTestGame(t, 0)
	arrange(t, g, []string{"5c", "9d"}, []string{"2s", "Kh"}, []string{"6d", "Qs"}, "5h")

	require.True(t, g.AttemptPlay(cardIn(t, g.PlayerHand, "5c").ID))

	snap := g.Snapshot()
	assert.Len(t, snap.AIHand, 3)
	assert.Len(t, snap.Deck, 1)
	assert.Equal(t, models.ActorPlayer, snap.Turn)
}

func TestOpponentWinsWithLastEight(t *testing.T) {
	g, mb := setupTestGame(t, 0)
	var result *models.GameResult
	g.OnGameEnd = func(r models.GameResult) { result = &r }
	arrange(t, g, []string{"5c", "Kd"}, []string{"8d"}, []string{"6d"}, "5h")

	require.True(t, g.AttemptPlay(cardIn(t, g.PlayerHand, "5c").ID))

	snap := g.Snapshot()
	assert.Equal(t, models.StatusAIWon, snap.Status)
	assert.Equal(t, models.SuitDiamonds, snap.CurrentSuit, "an eight played last keeps its own suit")
	assert.Equal(t, EventGameEnd, mb.getLastEvent().Type)
	require.NotNil(t, result)
	assert.Equal(t, models.ActorAI, result.Winner)
	assert.Equal(t, 1, result.PlayerCards)

	// Kd matches the called suit but the game is over.
	mb.clear()
	before := g.Snapshot()
	assert.False(t, g.AttemptPlay(cardIn(t, g.PlayerHand, "Kd").ID))
	assert.False(t, g.Draw())
	assert.False(t, g.ChooseSuit(models.SuitHearts))
	assert.Equal(t, before, g.Snapshot())
	assert.Empty(t, mb.types())
}

func TestOpponentActsAfterDelay(t *testing.T) {
	g, _ := setupTestGame(t, 10*time.Millisecond)
	arrange(t, g, []string{"5c", "9d"}, []string{"2s", "Kc"}, []string{"6d"}, "5h")

	require.True(t, g.AttemptPlay(cardIn(t, g.PlayerHand, "5c").ID))
	assert.Equal(t, models.ActorAI, g.View().Turn)

	require.Eventually(t, func() bool { return g.View().Turn == models.ActorPlayer }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, g.View().AIHandSize)
}

func TestStaleOpponentTimerIgnoredAfterRestart(t *testing.T) {
	g, _ := setupTestGame(t, 20*time.Millisecond)
	arrange(t, g, []string{"5c", "9d"}, []string{"2s", "Kc"}, []string{"6d"}, "5h")

	require.True(t, g.AttemptPlay(cardIn(t, g.PlayerHand, "5c").ID))
	g.Start()
	time.Sleep(80 * time.Millisecond)

	v := g.View()
	assert.Equal(t, models.ActorPlayer, v.Turn)
	assert.Equal(t, 0, v.TurnID)
	assert.Equal(t, HandSize, v.AIHandSize)
	assert.Len(t, v.PlayerHand, HandSize)
}

func TestCloseCancelsOpponent(t *testing.T) {
	g, _ := setupTestGame(t, 20*time.Millisecond)
	arrange(t, g, []string{"5c", "9d"}, []string{"2s", "Kc"}, []string{"6d"}, "5h")

	require.True(t, g.AttemptPlay(cardIn(t, g.PlayerHand, "5c").ID))
	g.Close()
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, 2, g.View().AIHandSize)
	assert.Equal(t, models.ActorAI, g.View().Turn)
}

func TestRandomPlayConservesCards(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		g, _ := setupTestGame(t, 0)
		g.rng = NewShuffler(seed)
		g.Start()
		r := rand.New(rand.NewSource(seed))

		for step := 0; step < 500 && g.View().Status == models.StatusPlaying; step++ {
			v := g.View()
			require.Equal(t, models.ActorPlayer, v.Turn, "opponent moves inline with zero delay")
			switch {
			case v.IsSuitSelectionOpen:
				require.True(t, g.ChooseSuit(models.Suits[r.Intn(len(models.Suits))]))
			case len(v.Playable) > 0:
				require.True(t, g.AttemptPlay(v.Playable[r.Intn(len(v.Playable))]))
			default:
				require.True(t, g.Draw())
			}
			snap := g.Snapshot()
			require.Equal(t, DeckSize, totalCards(snap), "seed %d step %d", seed, step)
			require.NotEmpty(t, snap.DiscardPile)
		}

		snap := g.Snapshot()
		if snap.Status.Terminal() {
			assert.True(t, len(snap.PlayerHand) == 0 || len(snap.AIHand) == 0)
		}
	}
}

func TestViewHidesOpponentHand(t *testing.T) {
	g, _ := setupTestGame(t, time.Hour)
	arrange(t, g, []string{"5c", "9d", "8h"}, []string{"2s", "Kc"}, []string{"6d"}, "5h")

	v := g.View()
	assert.Equal(t, 2, v.AIHandSize)
	assert.Equal(t, 1, v.StockpileSize)
	require.NotNil(t, v.DiscardTop)
	assert.Equal(t, models.RankFive, v.DiscardTop.Rank)
	assert.ElementsMatch(t, []uuid.UUID{
		cardIn(t, g.PlayerHand, "5c").ID,
		cardIn(t, g.PlayerHand, "8h").ID,
	}, v.Playable)

	data := string(EventBytes(g.SyncEvent()))
	assert.Contains(t, data, `"type":"private_sync_state"`)
	assert.NotContains(t, data, cardIn(t, g.AIHand, "Kc").ID.String())
}

func TestSnapshotIsDetached(t *testing.T) {
	g, _ := setupTestGame(t, time.Hour)
	g.Start()
	snap := g.Snapshot()
	snap.PlayerHand[0].Rank = "Z"
	snap.Deck = nil
	assert.NotEqual(t, models.Rank("Z"), g.Snapshot().PlayerHand[0].Rank)
	assert.NotEmpty(t, g.Snapshot().Deck)
}

func TestHandlePlayerActionRoutesIntents(t *testing.T) {
	g, _ := setupTestGame(t, time.Hour)
	assert.True(t, g.HandlePlayerAction(models.GameAction{ActionType: models.ActionStart}))
	assert.True(t, g.HandlePlayerAction(models.GameAction{ActionType: models.ActionDraw}))
	assert.False(t, g.HandlePlayerAction(models.GameAction{ActionType: models.ActionChooseSuit, Suit: models.SuitClubs}))
	assert.False(t, g.HandlePlayerAction(models.GameAction{ActionType: "action_cheat"}))
}

type recordingPublisher struct {
	mu      sync.Mutex
	records []cache.GameActionRecord
}

func (p *recordingPublisher) PublishGameAction(_ context.Context, rec cache.GameActionRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec)
	return nil
}

func (p *recordingPublisher) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

func TestActionsArePublished(t *testing.T) {
	g, _ := setupTestGame(t, time.Hour)
	pub := &recordingPublisher{}
	g.History = pub

	g.Start()
	require.True(t, g.Draw())

	require.Eventually(t, func() bool { return pub.len() == 2 }, time.Second, 5*time.Millisecond)
	pub.mu.Lock()
	defer pub.mu.Unlock()
	indexes := map[int]string{}
	for _, rec := range pub.records {
		assert.Equal(t, g.ID, rec.GameID)
		assert.Equal(t, g.OwnerID, rec.OwnerID)
		indexes[rec.ActionIndex] = rec.ActionType
	}
	assert.Equal(t, map[int]string{1: string(EventGameStart), 2: string(EventPlayerDraw)}, indexes)
}
