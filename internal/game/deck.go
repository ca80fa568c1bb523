package game

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/eights/internal/models"
)

const (
	// DeckSize is the number of cards in a standard deck.
	DeckSize = 52
	// HandSize is how many cards each seat is dealt.
	HandSize = 8
)

// NewShuffler returns a random source for dealing. A zero seed picks a
// time-based one; any other seed reproduces the same permutations.
func NewShuffler(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// CreateDeck builds one card per (suit, rank) pair, each with a fresh ID, and
// returns them in a uniformly shuffled order.
func CreateDeck(r *rand.Rand) []*models.Card {
	if r == nil {
		r = NewShuffler(0)
	}
	deck := make([]*models.Card, 0, DeckSize)
	for _, suit := range models.Suits {
		for _, rank := range models.Ranks {
			deck = append(deck, &models.Card{ID: uuid.New(), Suit: suit, Rank: rank})
		}
	}
	shuffleCards(r, deck)
	return deck
}

// shuffleCards permutes cards in place (Fisher-Yates).
func shuffleCards(r *rand.Rand, cards []*models.Card) {
	r.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// indexOfCard returns the position of the card with the given ID, or -1.
func indexOfCard(cards []*models.Card, id uuid.UUID) int {
	for i, c := range cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// removeCardAt returns cards without the element at i. The input slice is not modified.
func removeCardAt(cards []*models.Card, i int) []*models.Card {
	out := make([]*models.Card, 0, len(cards)-1)
	out = append(out, cards[:i]...)
	return append(out, cards[i+1:]...)
}
