// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for game action logs.
const DefaultQueueName = "eights_actions"

// GameActionRecord holds the minimal info needed to replay a game for audit.
type GameActionRecord struct {
	GameID        uuid.UUID              `json:"game_id"`
	ActionIndex   int                    `json:"action_index"`
	Actor         string                 `json:"actor"`
	OwnerID       uuid.UUID              `json:"owner_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// ActionQueue appends action records to a Redis list.
type ActionQueue struct {
	rdb   *redis.Client
	queue string
}

// NewActionQueue wraps an existing client. An empty queue name uses DefaultQueueName.
func NewActionQueue(rdb *redis.Client, queue string) *ActionQueue {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &ActionQueue{rdb: rdb, queue: queue}
}

// ConnectRedis dials addr, pings it and returns a queue bound to it.
func ConnectRedis(addr string, db int, queue string) (*ActionQueue, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return NewActionQueue(rdb, queue), nil
}

// PublishGameAction serializes the given record to JSON, then pushes it to the Redis queue.
func (q *ActionQueue) PublishGameAction(ctx context.Context, record GameActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal GameActionRecord: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.queue, err)
	}
	return nil
}

// QueueName returns the list the records are pushed to.
func (q *ActionQueue) QueueName() string {
	return q.queue
}

// Close releases the underlying client.
func (q *ActionQueue) Close() error {
	return q.rdb.Close()
}

// PopGameAction blocks up to timeout for the next record. It returns (nil, nil)
// when the queue stayed empty.
func (q *ActionQueue) PopGameAction(ctx context.Context, timeout time.Duration) (*GameActionRecord, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop %s: %w", q.queue, err)
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return nil, nil
	}
	var record GameActionRecord
	if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
		return nil, fmt.Errorf("invalid action record: %w", err)
	}
	return &record, nil
}
