// internal/game/utils.go
package game

import (
	"encoding/json"

	"github.com/jason-s-yu/eights/internal/models"
	"github.com/sirupsen/logrus"
)

// EventBytes marshals a GameEvent into JSON bytes.
// Logs a warning and returns empty JSON "{}" on marshalling error.
func EventBytes(ev GameEvent) []byte {
	data, err := json.Marshal(ev)
	if err != nil {
		logrus.WithError(err).Warnf("failed to marshal GameEvent type %s", ev.Type)
		return []byte("{}")
	}
	return data
}

// buildEventCard converts a card for an event payload, hiding its face unless reveal is set.
func buildEventCard(c *models.Card, reveal bool) *EventCard {
	if c == nil {
		return nil
	}
	ev := &EventCard{ID: c.ID}
	if reveal {
		ev.Rank = c.Rank
		ev.Suit = c.Suit
	}
	return ev
}

// copyCards detaches a pile from the game for snapshots.
func copyCards(cards []*models.Card) []models.Card {
	out := make([]models.Card, len(cards))
	for i, c := range cards {
		out[i] = *c
	}
	return out
}
