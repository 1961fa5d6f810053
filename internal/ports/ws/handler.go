package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/zhangyumengsarah-gif/word/internal/app"
	"github.com/zhangyumengsarah-gif/word/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// Handler upgrades /ws requests and feeds frames to the coordinator.
type Handler struct {
	coord    *app.Coordinator
	hub      *Hub
	auth     *TokenAuth
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewHandler builds a Handler. allowedOrigin "" or "*" accepts any origin; auth may be nil.
func NewHandler(coord *app.Coordinator, hub *Hub, auth *TokenAuth, allowedOrigin string, logger zerolog.Logger) *Handler {
	return &Handler{
		coord: coord,
		hub:   hub,
		auth:  auth,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
		log: logger,
	}
}

func (h *Handler) participantID(r *http.Request) (string, error) {
	if h.auth == nil {
		return uuid.NewString(), nil
	}
	return h.auth.ParticipantID(r)
}

// ServeHTTP runs one connection to completion: join, read loop, leave.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := h.participantID(r)
	if err != nil {
		h.log.Debug().Err(err).Msg("rejecting unauthenticated connection")
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := newClient(id, conn)
	if !h.hub.register(c) {
		h.log.Info().Str("participant", id).Msg("participant already connected")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "already connected"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	log := h.log.With().Str("participant", id).Logger()
	log.Info().Msg("connected")

	go c.writePump(log)

	ctx := context.Background()
	if err := h.coord.Join(ctx, id); err != nil {
		if errors.Is(err, domain.ErrSessionFull) {
			log.Info().Msg("session full")
			_ = h.hub.Evict(ctx, id)
		} else {
			log.Error().Err(err).Msg("join failed")
		}
	}

	h.readPump(ctx, c, log)

	c.close()
	h.hub.unregister(c)
	if err := h.coord.Leave(ctx, id); err != nil {
		log.Error().Err(err).Msg("leave failed")
	}
	log.Info().Msg("disconnected")
}

func (h *Handler) readPump(ctx context.Context, c *client, log zerolog.Logger) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("read failed")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			log.Debug().Err(err).Msg("malformed frame")
			_ = h.coord.Reject(ctx, c.id, app.ErrMalformedFrame)
			continue
		}

		err = h.coord.Submit(ctx, c.id, app.CommandKind(env.Event), env.Payload)
		switch {
		case err == nil:
		case errors.Is(err, app.ErrInvalidSeat):
			log.Debug().Str("event", env.Event).Msg("dropping event from unseated participant")
		default:
			log.Debug().Err(err).Str("event", env.Event).Msg("event rejected")
		}
	}
}

// writePump owns all writes to the connection. After close() it flushes queued frames
// and then sends a close frame.
func (c *client) writePump(log zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				log.Debug().Err(err).Msg("write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			for {
				select {
				case msg := <-c.send:
					if err := c.write(websocket.TextMessage, msg); err != nil {
						return
					}
				default:
					_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

func (c *client) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}
