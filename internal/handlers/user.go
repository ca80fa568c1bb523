package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/eights/internal/auth"
	"github.com/jason-s-yu/eights/internal/database"
	"github.com/jason-s-yu/eights/internal/models"
	"github.com/sirupsen/logrus"
)

var errNoToken = errors.New("missing auth token")

// AuthenticatedUser returns the guest ID carried by the request's auth cookie.
func AuthenticatedUser(r *http.Request) (uuid.UUID, error) {
	token := extractTokenFromCookie(r)
	if token == "" {
		return uuid.Nil, errNoToken
	}
	sub, err := auth.AuthenticateJWT(token)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user ID in token: %w", err)
	}
	return id, nil
}

// EnsureEphemeralUser returns the caller's guest ID, issuing a new guest and
// cookie when the request carries no valid token.
func EnsureEphemeralUser(w http.ResponseWriter, r *http.Request, logger logrus.FieldLogger) (uuid.UUID, error) {
	if id, err := AuthenticatedUser(r); err == nil {
		return id, nil
	}

	guest := models.User{Username: "Guest", IsEphemeral: true}
	if err := database.CreateGuestUser(context.Background(), &guest); err != nil && !errors.Is(err, database.ErrNoDatabase) {
		logger.WithError(err).Warn("failed to persist guest user")
	}
	token, err := auth.CreateJWT(guest.ID.String())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create ephemeral JWT: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	logger.WithField("user_id", guest.ID).Info("issued guest session")
	return guest.ID, nil
}
