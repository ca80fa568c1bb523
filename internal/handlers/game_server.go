// internal/handlers/game_server.go
package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/eights/internal/database"
	"github.com/jason-s-yu/eights/internal/game"
	"github.com/jason-s-yu/eights/internal/models"
	"github.com/sirupsen/logrus"
)

// sendBuffer bounds how many events may queue for one slow client.
const sendBuffer = 64

// GameServer is a high-level struct that holds a reference to a GameStore
// and wires new games to websocket clients, the historian and the results table.
type GameServer struct {
	GameStore     *game.GameStore
	Logger        logrus.FieldLogger
	OpponentDelay time.Duration
	History       game.ActionPublisher

	mu      sync.Mutex
	clients map[uuid.UUID]map[*client]struct{}
}

// client is one websocket attached to a game. Events are written in order by writeLoop.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	closed bool
}

func NewGameServer(logger logrus.FieldLogger) *GameServer {
	return &GameServer{
		GameStore:     game.NewGameStore(),
		Logger:        logger,
		OpponentDelay: game.DefaultOpponentDelay,
		clients:       make(map[uuid.UUID]map[*client]struct{}),
	}
}

// NewEightsGame creates a waiting game owned by ownerID and registers it.
func (gs *GameServer) NewEightsGame(ownerID uuid.UUID) *game.EightsGame {
	g := game.NewEightsGame(ownerID, 0)
	g.OpponentDelay = gs.OpponentDelay
	g.History = gs.History
	g.Logger = gs.Logger.WithFields(logrus.Fields{"game_id": g.ID, "owner_id": ownerID})

	gameID := g.ID
	g.BroadcastFn = func(ev game.GameEvent) {
		gs.broadcast(gameID, game.EventBytes(ev))
	}
	g.OnGameEnd = func(res models.GameResult) {
		if database.DB == nil {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := database.RecordGameResult(ctx, res); err != nil {
				gs.Logger.WithError(err).WithField("game_id", res.GameID).Warn("failed to record game result")
			}
		}()
	}

	gs.GameStore.AddGame(g)
	g.Logger.Info("game created")
	return g
}

// RemoveGame drops a game and disconnects its clients.
func (gs *GameServer) RemoveGame(id uuid.UUID) {
	gs.GameStore.DeleteGame(id)
	gs.disconnectAll(id)
}

// SweepIdle evicts idle games until ctx is cancelled, disconnecting their clients.
func (gs *GameServer) SweepIdle(ctx context.Context, interval, maxIdle time.Duration) {
	gs.GameStore.SweepIdle(ctx, interval, maxIdle, gs.Logger, gs.disconnectAll)
}

func (gs *GameServer) disconnectAll(id uuid.UUID) {
	gs.mu.Lock()
	set := gs.clients[id]
	delete(gs.clients, id)
	for c := range set {
		c.shut()
		go c.conn.Close(GameClosedError, "game closed")
	}
	gs.mu.Unlock()
}

// attach registers conn for events of game id.
func (gs *GameServer) attach(id uuid.UUID, conn *websocket.Conn) *client {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	gs.mu.Lock()
	if gs.clients[id] == nil {
		gs.clients[id] = make(map[*client]struct{})
	}
	gs.clients[id][c] = struct{}{}
	gs.mu.Unlock()
	return c
}

// push queues data for a single client, e.g. the initial sync.
func (gs *GameServer) push(c *client, data []byte) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// detach removes c and closes its queue.
func (gs *GameServer) detach(id uuid.UUID, c *client) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if set, ok := gs.clients[id]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(gs.clients, id)
		}
	}
	c.shut()
}

// clientCount reports how many sockets are attached to a game.
func (gs *GameServer) clientCount(id uuid.UUID) int {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return len(gs.clients[id])
}

// broadcast queues data for every client of a game. A client whose queue is
// full is dropped rather than stalling the game.
func (gs *GameServer) broadcast(id uuid.UUID, data []byte) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	for c := range gs.clients[id] {
		select {
		case c.send <- data:
		default:
			gs.Logger.WithField("game_id", id).Warn("client send queue full, dropping connection")
			delete(gs.clients[id], c)
			c.shut()
			go c.conn.Close(websocket.StatusPolicyViolation, "client too slow")
		}
	}
}

// shut closes the send queue once. Callers hold gs.mu.
func (c *client) shut() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writeLoop drains the send queue until it is closed or a write fails.
func (c *client) writeLoop(ctx context.Context, logger logrus.FieldLogger) {
	for data := range c.send {
		writeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := c.conn.Write(writeCtx, websocket.MessageText, data)
		cancel()
		if err != nil {
			logger.WithError(err).Warn("failed to write event")
			return
		}
	}
}
