package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/testcraft-app/testcraft-service/internal/events"
	"github.com/testcraft-app/testcraft-service/internal/models"
	"github.com/testcraft-app/testcraft-service/internal/utils"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
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

// WSHandler bridges the browser and the event bus. Environment signals
// (fullscreen changes, visibility, copy/paste) arrive over the socket and
// are published for the violation monitor; session events flow back out so
// the client can render the countdown, warnings, and forced submits.
type WSHandler struct {
	BaseHandler
	bus      *events.Bus
	upgrader websocket.Upgrader
}

func NewWSHandler(bus *events.Bus, logger utils.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		BaseHandler: NewBaseHandler(logger),
		bus:         bus,
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// signalMessage is the inbound wire format. The timestamp is optional; the
// server clock fills it in when the client omits one.
type signalMessage struct {
	Kind       models.SignalKind `json:"kind"`
	Fullscreen bool              `json:"fullscreen"`
	At         *time.Time        `json:"at,omitempty"`
}

// Stream upgrades the connection and runs it until either side closes
func (h *WSHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.LogError(c, err, "WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sessionEvents, err := h.bus.SubscribeSessionEvents(ctx)
	if err != nil {
		h.LogError(c, err, "Failed to subscribe to session events")
		return
	}

	h.LogRequest(c, "WebSocket client connected")

	// Writer goroutine: forward session events until the subscription closes.
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		for event := range sessionEvents {
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Warn("WebSocket write failed", "error", err)
				cancel()
				return
			}
		}
	}()

	// Read loop: decode environment signals and publish them on the bus.
	for {
		var msg signalMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket unexpected close", "error", err)
			} else {
				h.logger.Debug("WebSocket connection closed")
			}
			break
		}

		signal := models.EnvironmentSignal{
			Kind:       msg.Kind,
			Fullscreen: msg.Fullscreen,
			At:         time.Now(),
		}
		if msg.At != nil {
			signal.At = *msg.At
		}

		if err := h.bus.PublishSignal(ctx, signal); err != nil {
			h.logger.Error("Failed to publish environment signal",
				"kind", signal.Kind,
				"error", err)
		}
	}

	cancel()
	<-writeDone
}
