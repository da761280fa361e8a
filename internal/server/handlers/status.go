package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/RozoAI/api-proxy-sub001/internal/server/websocket"
	"github.com/RozoAI/api-proxy-sub001/pkg/config"
)

type StatusHandler struct {
	hub      *websocket.StatusHub
	upgrader gorilla.Upgrader
	logger   zerolog.Logger
}

func NewStatusHandler(hub *websocket.StatusHub, cfg config.WebSocketConfig, logger zerolog.Logger) *StatusHandler {
	upgrader := gorilla.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
	}
	if !cfg.CheckOrigin {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}

	return &StatusHandler{
		hub:      hub,
		upgrader: upgrader,
		logger:   logger,
	}
}

// HandleConnection upgrades the request and subscribes the caller to status
// updates for one payment id.
func (h *StatusHandler) HandleConnection(c *gin.Context) {
	paymentID := c.Param("payment_id")
	if paymentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Payment id is required",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("payment_id", paymentID).Msg("WebSocket upgrade failed")
		return
	}

	client := &websocket.StatusClient{PaymentID: paymentID, Conn: conn}
	h.hub.Register(client)

	// Drain the connection until the subscriber goes away.
	go func() {
		defer h.hub.Unregister(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
