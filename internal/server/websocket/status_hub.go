package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/RozoAI/api-proxy-sub001/internal/domain"
)

type StatusUpdate struct {
	PaymentID string               `json:"paymentId"`
	Status    domain.PaymentStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
}

type StatusClient struct {
	PaymentID string
	Conn      *websocket.Conn
}

// StatusHub pushes payment status transitions to websocket subscribers keyed
// by payment id.
type StatusHub struct {
	clients    map[string]map[*websocket.Conn]bool
	broadcast  chan StatusUpdate
	register   chan *StatusClient
	unregister chan *StatusClient
	logger     zerolog.Logger
}

func NewStatusHub(logger zerolog.Logger) *StatusHub {
	return &StatusHub{
		clients:    make(map[string]map[*websocket.Conn]bool),
		broadcast:  make(chan StatusUpdate, 100),
		register:   make(chan *StatusClient, 100),
		unregister: make(chan *StatusClient, 100),
		logger:     logger.With().Str("component", "status_hub").Logger(),
	}
}

func (h *StatusHub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.clients[client.PaymentID] == nil {
				h.clients[client.PaymentID] = make(map[*websocket.Conn]bool)
			}
			h.clients[client.PaymentID][client.Conn] = true
			h.logger.Info().
				Str("payment_id", client.PaymentID).
				Int("connection_count", len(h.clients[client.PaymentID])).
				Msg("Status subscriber registered")

		case client := <-h.unregister:
			if conns, ok := h.clients[client.PaymentID]; ok {
				delete(conns, client.Conn)
				if len(conns) == 0 {
					delete(h.clients, client.PaymentID)
				}
				client.Conn.Close()
				h.logger.Info().
					Str("payment_id", client.PaymentID).
					Msg("Status subscriber unregistered")
			}

		case update := <-h.broadcast:
			conns := h.clients[update.PaymentID]
			for conn := range conns {
				if err := conn.WriteJSON(update); err != nil {
					h.logger.Warn().Err(err).
						Str("payment_id", update.PaymentID).
						Msg("Failed to push status update, dropping subscriber")
					delete(conns, conn)
					conn.Close()
				}
			}
			if len(conns) == 0 {
				delete(h.clients, update.PaymentID)
			}
		}
	}
}

func (h *StatusHub) Register(client *StatusClient) {
	h.register <- client
}

func (h *StatusHub) Unregister(client *StatusClient) {
	h.unregister <- client
}

// BroadcastStatus implements interfaces.StatusNotifier. The send is
// non-blocking: a saturated hub drops updates rather than stalling
// reconciliation.
func (h *StatusHub) BroadcastStatus(paymentID string, status domain.PaymentStatus) {
	update := StatusUpdate{
		PaymentID: paymentID,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
	select {
	case h.broadcast <- update:
	default:
		h.logger.Warn().
			Str("payment_id", paymentID).
			Msg("Status broadcast channel full, dropping update")
	}
}
