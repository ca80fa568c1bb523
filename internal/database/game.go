// internal/database/game.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/eights/internal/models"
	"github.com/jason-s-yu/eights/internal/rating"
)

// RecordGameResult persists the outcome of a finished game and moves the
// owner's rating. A game already on record is left untouched.
func RecordGameResult(ctx context.Context, res models.GameResult) error {
	if DB == nil {
		return ErrNoDatabase
	}
	q := `
		INSERT INTO game_results
			(game_id, owner_id, winner, status, turns, player_cards, ai_cards, reshuffles, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (game_id) DO NOTHING
	`
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, e := tx.Exec(ctx, q,
			res.GameID, res.OwnerID, string(res.Winner), string(res.Status), res.Turns,
			res.PlayerCards, res.AICards, res.Reshuffles, res.StartedAt, res.EndedAt,
		)
		if e != nil || tag.RowsAffected() == 0 {
			return e
		}
		return applyRating(ctx, tx, res.OwnerID, res.Winner == models.ActorPlayer)
	})
	if err != nil {
		return fmt.Errorf("record result for game %s: %w", res.GameID, err)
	}
	return nil
}

// applyRating updates ownerID's rating for one game. Guests that were never
// persisted get a default row first.
func applyRating(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, won bool) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO users (id, username, is_ephemeral) VALUES ($1, 'Guest', TRUE) ON CONFLICT (id) DO NOTHING`,
		ownerID); err != nil {
		return err
	}
	var r rating.Rating
	if err := tx.QueryRow(ctx, `SELECT elo, rd, sigma FROM users WHERE id = $1 FOR UPDATE`, ownerID).
		Scan(&r.Elo, &r.RD, &r.Sigma); err != nil {
		return err
	}
	r = rating.AfterGame(r, won)
	_, err := tx.Exec(ctx, `UPDATE users SET elo = $2, rd = $3, sigma = $4 WHERE id = $1`, ownerID, r.Elo, r.RD, r.Sigma)
	return err
}

// PlayerStats summarises a guest's finished games.
type PlayerStats struct {
	Played int           `json:"played"`
	Won    int           `json:"won"`
	Lost   int           `json:"lost"`
	Rating rating.Rating `json:"rating"`
}

// GetPlayerStats counts wins and losses for ownerID.
func GetPlayerStats(ctx context.Context, ownerID uuid.UUID) (PlayerStats, error) {
	var st PlayerStats
	if DB == nil {
		return st, ErrNoDatabase
	}
	q := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE winner = $2)
		FROM game_results
		WHERE owner_id = $1
	`
	if err := DB.QueryRow(ctx, q, ownerID, string(models.ActorPlayer)).Scan(&st.Played, &st.Won); err != nil {
		return st, fmt.Errorf("stats for %s: %w", ownerID, err)
	}
	st.Lost = st.Played - st.Won

	st.Rating = rating.Default()
	err := DB.QueryRow(ctx, `SELECT elo, rd, sigma FROM users WHERE id = $1`, ownerID).
		Scan(&st.Rating.Elo, &st.Rating.RD, &st.Rating.Sigma)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return st, fmt.Errorf("rating for %s: %w", ownerID, err)
	}
	return st, nil
}

// ListRecentResults returns up to limit results for ownerID, newest first.
func ListRecentResults(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.GameResult, error) {
	if DB == nil {
		return nil, ErrNoDatabase
	}
	q := `
		SELECT game_id, owner_id, winner, status, turns, player_cards, ai_cards, reshuffles, started_at, ended_at
		FROM game_results
		WHERE owner_id = $1
		ORDER BY ended_at DESC
		LIMIT $2
	`
	rows, err := DB.Query(ctx, q, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list results for %s: %w", ownerID, err)
	}
	defer rows.Close()

	var out []models.GameResult
	for rows.Next() {
		var r models.GameResult
		var winner, status string
		if err := rows.Scan(&r.GameID, &r.OwnerID, &winner, &status, &r.Turns,
			&r.PlayerCards, &r.AICards, &r.Reshuffles, &r.StartedAt, &r.EndedAt); err != nil {
			return nil, err
		}
		r.Winner = models.Actor(winner)
		r.Status = models.GameStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}
