package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/eights/internal/models"
)

// CreateGuestUser inserts a guest row, assigning an ID if the user has none.
func CreateGuestUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if DB == nil {
		return ErrNoDatabase
	}

	q := `INSERT INTO users (id, username, is_ephemeral, created_at)
	      VALUES ($1, $2, $3, $4)
	      ON CONFLICT (id) DO NOTHING`

	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, user.ID, user.Username, user.IsEphemeral, user.CreatedAt)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByID fetches a guest by ID.
func GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if DB == nil {
		return nil, ErrNoDatabase
	}
	var u models.User
	q := `SELECT id, username, is_ephemeral, created_at FROM users WHERE id = $1`
	if err := DB.QueryRow(ctx, q, id).Scan(&u.ID, &u.Username, &u.IsEphemeral, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}
