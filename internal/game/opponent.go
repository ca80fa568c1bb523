package game

import (
	"github.com/jason-s-yu/eights/internal/models"
)

// Move is the opponent's decision for one turn: draw, or play Card (with Suit
// when Card is an eight).
type Move struct {
	Draw bool
	Card *models.Card
	Suit models.Suit
}

// ChooseMove is the opponent's greedy policy. It plays the first legal
// non-eight in hand order, falls back to the first legal eight, and draws when
// nothing is playable. The result depends only on its arguments.
func ChooseMove(hand []*models.Card, currentSuit models.Suit, currentRank models.Rank) Move {
	var eight *models.Card
	for _, c := range hand {
		if !IsLegalPlay(c, currentSuit, currentRank) {
			continue
		}
		if !c.IsEight() {
			return Move{Card: c}
		}
		if eight == nil {
			eight = c
		}
	}
	if eight == nil {
		return Move{Draw: true}
	}
	return Move{Card: eight, Suit: pickSuit(hand)}
}

// pickSuit names the suit held most often, counting the whole hand including
// the eight being played. Ties go to the later suit in models.Suits.
func pickSuit(hand []*models.Card) models.Suit {
	counts := make(map[models.Suit]int, len(models.Suits))
	for _, c := range hand {
		counts[c.Suit]++
	}
	best := models.Suits[0]
	for _, s := range models.Suits[1:] {
		if counts[s] >= counts[best] {
			best = s
		}
	}
	return best
}
