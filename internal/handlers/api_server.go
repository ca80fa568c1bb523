// internal/handlers/api_server.go
package handlers

import (
	"net/http"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/jason-s-yu/eights/internal/middleware"
	"github.com/sirupsen/logrus"
)

// NewRouter wires every endpoint behind request logging, panic logging and CORS.
func NewRouter(logger logrus.FieldLogger, gs *GameServer, origins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})

	// game endpoints
	mux.HandleFunc("POST /game/create", CreateGameHandler(logger, gs))
	mux.HandleFunc("GET /game/{id}", GetGameHandler(gs))
	mux.HandleFunc("POST /game/{id}/action", GameActionHandler(logger, gs))
	mux.HandleFunc("DELETE /game/{id}", DeleteGameHandler(gs))

	// game websocket
	mux.HandleFunc("GET /game/ws/{id}", GameWSHandler(logger, gs, origins))

	// user endpoints
	mux.HandleFunc("GET /user/stats", StatsHandler(logger))

	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(origins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Accept", "Content-Type"}),
		gorillahandlers.AllowCredentials(),
	)

	var h http.Handler = mux
	h = cors(h)
	h = middleware.RecoverMiddleware(logger)(h)
	h = middleware.LogMiddleware(logger)(h)
	return h
}
