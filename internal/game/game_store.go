package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// GameStore keeps every live game in memory, keyed by game ID.
type GameStore struct {
	mu    sync.Mutex
	games map[uuid.UUID]*EightsGame
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[uuid.UUID]*EightsGame),
	}
}

func (s *GameStore) AddGame(game *EightsGame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = game
}

func (s *GameStore) GetGame(id uuid.UUID) (*EightsGame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, exists := s.games[id]
	return g, exists
}

// DeleteGame removes the game and stops its pending opponent action.
func (s *GameStore) DeleteGame(id uuid.UUID) {
	s.mu.Lock()
	g, ok := s.games[id]
	delete(s.games, id)
	s.mu.Unlock()
	if ok {
		g.Close()
	}
}

// GamesByOwner returns the games created by the given guest.
func (s *GameStore) GamesByOwner(ownerID uuid.UUID) []*EightsGame {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*EightsGame
	for _, g := range s.games {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	return out
}

// Len reports how many games are held.
func (s *GameStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.games)
}

// EvictIdle deletes games untouched for longer than maxIdle and returns their IDs.
func (s *GameStore) EvictIdle(now time.Time, maxIdle time.Duration) []uuid.UUID {
	s.mu.Lock()
	var stale []*EightsGame
	for id, g := range s.games {
		if now.Sub(g.LastActivity()) > maxIdle {
			stale = append(stale, g)
			delete(s.games, id)
		}
	}
	s.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(stale))
	for _, g := range stale {
		g.Close()
		ids = append(ids, g.ID)
	}
	return ids
}

// SweepIdle evicts idle games every interval until ctx is cancelled.
// onEvict, if set, runs once per evicted game after it has been closed.
func (s *GameStore) SweepIdle(ctx context.Context, interval, maxIdle time.Duration, logger logrus.FieldLogger, onEvict func(uuid.UUID)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			ids := s.EvictIdle(now, maxIdle)
			if len(ids) == 0 {
				continue
			}
			logger.WithField("games", ids).Info("evicted idle games")
			if onEvict != nil {
				for _, id := range ids {
					onEvict(id)
				}
			}
		}
	}
}
