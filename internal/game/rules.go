package game

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jason-s-yu/eights/internal/models"
)

// ErrInvalidSuit is returned when an eight is resolved without one of the four suits.
var ErrInvalidSuit = errors.New("invalid suit")

// IsLegalPlay reports whether card may be played on the current suit and rank.
// Eights are always legal.
func IsLegalPlay(card *models.Card, currentSuit models.Suit, currentRank models.Rank) bool {
	return card.IsEight() || card.Suit == currentSuit || card.Rank == currentRank
}

// ResolvePlay computes the suit and rank the next play must match once card is
// on the discard pile. An eight takes chosenSuit, which must be a real suit.
func ResolvePlay(card *models.Card, chosenSuit models.Suit) (models.Suit, models.Rank, error) {
	if card.IsEight() {
		if !chosenSuit.Valid() {
			return "", "", fmt.Errorf("resolve %s: %w %q", card, ErrInvalidSuit, chosenSuit)
		}
		return chosenSuit, models.RankEight, nil
	}
	return card.Suit, card.Rank, nil
}

// IsWin reports whether a hand has been played out.
func IsWin(hand []*models.Card) bool {
	return len(hand) == 0
}

// ParseSuit accepts a suit name in any case, or its first letter.
func ParseSuit(s string) (models.Suit, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, suit := range models.Suits {
		if s == string(suit) || (len(s) == 1 && s[0] == suit[0]) {
			return suit, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrInvalidSuit, s)
}
