package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a guest identity handed out on first contact. Guests have no
// password; the signed auth cookie is their only credential.
type User struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	IsEphemeral bool      `json:"is_ephemeral"`
	CreatedAt   time.Time `json:"created_at"`
}
