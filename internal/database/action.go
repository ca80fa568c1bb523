package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/eights/internal/cache"
)

// InsertGameActions writes a batch of historian records in one transaction.
// Records already stored (same game and index) are skipped.
func InsertGameActions(ctx context.Context, records []cache.GameActionRecord) error {
	if DB == nil {
		return ErrNoDatabase
	}
	if len(records) == 0 {
		return nil
	}
	q := `
		INSERT INTO game_actions (game_id, action_index, actor, owner_id, action_type, action_payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (game_id, action_index) DO NOTHING
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range records {
			payload, err := json.Marshal(rec.ActionPayload)
			if err != nil {
				return fmt.Errorf("marshal payload of action %d: %w", rec.ActionIndex, err)
			}
			batch.Queue(q, rec.GameID, rec.ActionIndex, rec.Actor, rec.OwnerID, rec.ActionType,
				payload, time.UnixMilli(rec.Timestamp))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert %d actions: %w", len(records), err)
		}
		return nil
	})
}

// ActionSink adapts InsertGameActions for the historian.
type ActionSink struct{}

// InsertActions implements historian.Sink.
func (ActionSink) InsertActions(ctx context.Context, records []cache.GameActionRecord) error {
	return InsertGameActions(ctx, records)
}
