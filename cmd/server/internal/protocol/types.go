package protocol

import (
	"github.com/sanadzhioua/tunisia-stock-dashboard/pkg/models"
)

// Client actions.
const (
	ActionRequestData = "request-data"
	ActionSetAlerts   = "set-alerts"
	ActionClearAlerts = "clear-alerts"
)

// Server frame types.
const (
	TypeMarketUpdate = "market-update"
	TypeAlert        = "alert"
	TypeAck          = "ack"
	TypeError        = "error"
)

type WSRequest struct {
	Action  string         `json:"action"`
	Payload RequestPayload `json:"payload"`
	ID      string         `json:"id,omitempty"`
}

type RequestPayload struct {
	Alerts []models.PriceAlert `json:"alerts,omitempty"`
}

type WSResponse struct {
	Type    string      `json:"type"`             // "market-update", "alert", "ack", "error"
	ID      string      `json:"id,omitempty"`     // Matches request ID
	Status  string      `json:"status,omitempty"` // "success", "error"
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
