package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the gateway surface: health check, the quiz-taking
// WebSocket and the admin REST routes.
func NewRouter(ws *WSHandler, adminHandler *AdminHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/ws", ws.ServeWS)
	adminHandler.Register(r.PathPrefix("/api").Subrouter())
	return r
}
