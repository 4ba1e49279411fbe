package hub

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/alerts"
	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/protocol"
	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/store"
	"github.com/sanadzhioua/tunisia-stock-dashboard/pkg/models"
)

type ClientInterface interface {
	ID() string
	SendJSON(v interface{})
	SendBytes(b []byte)
	Close()
}

// Hub maintains the set of connected subscribers and fans each new snapshot
// out to all of them. Delivery is best-effort point-to-multipoint; per-client
// ordering is guaranteed by the client's own send queue.
type Hub struct {
	mu      sync.RWMutex
	clients map[ClientInterface][]models.PriceAlert

	store  *store.SnapshotStore
	logger *zap.Logger
}

func NewHub(st *store.SnapshotStore, logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[ClientInterface][]models.PriceAlert),
		store:   st,
		logger:  logger,
	}
}

// Register adds a subscriber and immediately sends it the current snapshot,
// so no client starts with an empty frame.
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	h.clients[client] = nil
	count := len(h.clients)
	h.mu.Unlock()

	client.SendJSON(protocol.WSResponse{
		Type: protocol.TypeMarketUpdate,
		Data: h.store.Read(),
	})

	h.logger.Info("Client connected", zap.String("client", client.ID()), zap.Int("clients", count))
}

// Unregister removes a subscriber. Safe to call even if the transport already
// dropped; repeated calls are no-ops.
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	_, present := h.clients[client]
	delete(h.clients, client)
	count := len(h.clients)
	h.mu.Unlock()

	if present {
		client.Close()
		h.logger.Info("Client disconnected", zap.String("client", client.ID()), zap.Int("clients", count))
	}
}

// Publish delivers the snapshot to every registered subscriber and evaluates
// each client's alert set against it. A failing or slow client never blocks
// the others: sends go through per-client buffered queues.
func (h *Hub) Publish(snap *models.Snapshot) {
	frame, err := json.Marshal(protocol.WSResponse{
		Type: protocol.TypeMarketUpdate,
		Data: snap,
	})
	if err != nil {
		h.logger.Error("Snapshot marshal failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client, clientAlerts := range h.clients {
		client.SendBytes(frame)

		for _, trig := range alerts.Evaluate(snap, clientAlerts) {
			client.SendJSON(protocol.WSResponse{
				Type: protocol.TypeAlert,
				Data: trig,
			})
		}
	}

	h.logger.Debug("Broadcast market update", zap.Int("clients", len(h.clients)))
}

// HandleCommand dispatches a client request.
func (h *Hub) HandleCommand(client ClientInterface, req protocol.WSRequest) {
	switch req.Action {
	case protocol.ActionRequestData:
		// Pull path: must match what the store would return at this instant
		client.SendJSON(protocol.WSResponse{
			Type: protocol.TypeMarketUpdate,
			ID:   req.ID,
			Data: h.store.Read(),
		})
	case protocol.ActionSetAlerts:
		h.handleSetAlerts(client, req)
	case protocol.ActionClearAlerts:
		h.mu.Lock()
		h.clients[client] = nil
		h.mu.Unlock()
		h.sendAck(client, req.ID, "success", "Alerts cleared")
	default:
		h.sendError(client, req.ID, "Unknown action: "+req.Action)
	}
}

func (h *Hub) handleSetAlerts(client ClientInterface, req protocol.WSRequest) {
	var accepted []models.PriceAlert
	for _, a := range req.Payload.Alerts {
		a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
		if a.Symbol == "" || a.TargetPrice <= 0 {
			continue
		}
		if a.Condition != models.ConditionAbove && a.Condition != models.ConditionBelow {
			continue
		}
		accepted = append(accepted, a)
	}

	if len(accepted) == 0 && len(req.Payload.Alerts) > 0 {
		h.sendError(client, req.ID, "No valid alerts provided")
		return
	}

	h.mu.Lock()
	h.clients[client] = accepted
	h.mu.Unlock()

	h.sendAck(client, req.ID, "success", fmt.Sprintf("Watching %d alerts", len(accepted)))
}

// ClientCount reports the number of registered subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) sendAck(c ClientInterface, id, status, msg string) {
	c.SendJSON(protocol.WSResponse{Type: protocol.TypeAck, ID: id, Status: status, Message: msg})
}

func (h *Hub) sendError(c ClientInterface, id, msg string) {
	c.SendJSON(protocol.WSResponse{Type: protocol.TypeError, ID: id, Message: msg})
}
