package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/zhangyumengsarah-gif/word/internal/app"
	"github.com/zhangyumengsarah-gif/word/internal/domain"
)

// NewRouter mounts the WebSocket endpoint and the diagnostics routes.
func NewRouter(coord *app.Coordinator, hub *Hub, handler *Handler, clientOrigin string) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors(clientOrigin))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// The upgrade must not sit behind the timeout middleware.
	r.With(chimw.Timeout(5*time.Second)).Get("/session", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(sessionResponse{
			Snapshot:    coord.Snapshot(),
			Connections: hub.Connected(),
		})
	})

	r.Handle("/ws", handler)
	return r
}

type sessionResponse struct {
	domain.Snapshot
	Connections int `json:"connections"`
}

// cors allows a single configured origin, or any origin when unset.
func cors(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
