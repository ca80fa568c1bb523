package models

import "github.com/google/uuid"

// Suit is one of the four French suits.
type Suit string

const (
	SuitHearts   Suit = "hearts"
	SuitDiamonds Suit = "diamonds"
	SuitClubs    Suit = "clubs"
	SuitSpades   Suit = "spades"
)

// Suits lists every suit in the fixed enumeration order used for tie-breaks.
var Suits = []Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

// Valid reports whether s is one of the four suits.
func (s Suit) Valid() bool {
	switch s {
	case SuitHearts, SuitDiamonds, SuitClubs, SuitSpades:
		return true
	}
	return false
}

// Symbol returns the unicode pip for the suit, or "?" for an unknown suit.
func (s Suit) Symbol() string {
	switch s {
	case SuitHearts:
		return "♥"
	case SuitDiamonds:
		return "♦"
	case SuitClubs:
		return "♣"
	case SuitSpades:
		return "♠"
	}
	return "?"
}

// Rank is a card rank, "A" through "K".
type Rank string

const (
	RankAce   Rank = "A"
	RankTwo   Rank = "2"
	RankThree Rank = "3"
	RankFour  Rank = "4"
	RankFive  Rank = "5"
	RankSix   Rank = "6"
	RankSeven Rank = "7"
	RankEight Rank = "8"
	RankNine  Rank = "9"
	RankTen   Rank = "10"
	RankJack  Rank = "J"
	RankQueen Rank = "Q"
	RankKing  Rank = "K"
)

// Ranks lists the thirteen ranks in ascending order.
var Ranks = []Rank{
	RankAce, RankTwo, RankThree, RankFour, RankFive, RankSix, RankSeven,
	RankEight, RankNine, RankTen, RankJack, RankQueen, RankKing,
}

// Card is an immutable playing card. Two cards with the same suit and rank are
// still different cards; identity is the ID.
type Card struct {
	ID   uuid.UUID `json:"id"`
	Suit Suit      `json:"suit"`
	Rank Rank      `json:"rank"`
}

// IsEight reports whether the card is the wild rank.
func (c *Card) IsEight() bool {
	return c.Rank == RankEight
}

func (c *Card) String() string {
	return string(c.Rank) + c.Suit.Symbol()
}
