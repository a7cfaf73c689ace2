package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/testdesk/internal/model"
	"github.com/stemsi/testdesk/internal/store"
	ws "github.com/stemsi/testdesk/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams store changes to live dashboard clients.
type WSHandler struct {
	registry *store.Registry
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(registry *store.Registry, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		registry: registry,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// TestStream godoc
// WS /ws/v1/:chat_id/stream
// Sends the current list, then every store event for the chat id.
// Clients may send {"action":"ping"} or {"action":"refresh"}.
func (h *WSHandler) TestStream(c *gin.Context) {
	chatID := model.ChatID(c.Param("chat_id"))
	s := h.registry.Get(c.Request.Context(), chatID)

	// Subscribe before upgrading so no event between snapshot and loop is lost.
	events, unsubscribe := h.registry.Subscribe(chatID)
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("chat_id", chatID.String()).Logger()
	wsLog.Info().Msg("Stream client connected")

	if err := ws.WriteTyped(conn, ws.SnapshotResponse{Event: ws.EventSnapshot, Tests: s.Tests()}); err != nil {
		return
	}

	// The reader owns reads; writes below are serialised through this
	// goroutine only.
	requests := make(chan ws.Action)
	done := make(chan struct{})
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer close(done)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				} else {
					wsLog.Debug().Msg("Connection closed")
				}
				return
			}
			select {
			case requests <- msg.Action:
			case <-stop:
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case action := <-requests:
			if err := h.handleAction(conn, s, action); err != nil {
				return
			}
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := ws.WriteTyped(conn, e); err != nil {
				wsLog.Debug().Err(err).Msg("Stream write failed")
				return
			}
		}
	}
}

func (h *WSHandler) handleAction(conn *websocket.Conn, s *store.Store, action ws.Action) error {
	switch action {
	case ws.ActionPing:
		return ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
	case ws.ActionRefresh:
		return ws.WriteTyped(conn, ws.SnapshotResponse{Event: ws.EventSnapshot, Tests: s.Tests()})
	default:
		return ws.WriteError(conn, "unknown action: "+string(action))
	}
}
