package models

import (
	"time"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
)

/* ======================= rabbitmq ======================= */

// NotificationMessage is published after every externally visible state
// transition. Delivery is fire-and-forget.
type NotificationMessage struct {
	RecipientID   uuid.UUID         `json:"recipient_id"`
	EventType     types.NotifyEvent `json:"event_type"`
	RequestID     uuid.UUID         `json:"request_id"`
	RequestNumber string            `json:"request_number"`
	Payload       map[string]any    `json:"payload,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	CorrelationID string            `json:"correlation_id"`
}

// RequestStatusMessage mirrors a lifecycle transition onto the bus for
// downstream consumers (dashboards, audit).
type RequestStatusMessage struct {
	RequestID     uuid.UUID  `json:"request_id"`
	Status        string     `json:"status"`
	DriverID      *uuid.UUID `json:"driver_id,omitempty"`
	ActualPrice   *float64   `json:"actual_price,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
	CorrelationID string     `json:"correlation_id"`
}

/* ======================= Websocket ======================= */

// TowOffer is pushed to a candidate driver over the driver socket.
type TowOffer struct {
	ID                 uuid.UUID `json:"offer_id"`
	MsgType            string    `json:"type"` // always "tow_offer"
	RequestID          uuid.UUID `json:"request_id"`
	RequestNumber      string    `json:"request_number"`
	Pickup             Location  `json:"pickup"`
	Dropoff            *Location `json:"dropoff,omitempty"`
	TowType            string    `json:"tow_type"`
	VehicleCategory    string    `json:"vehicle_category"`
	EstimatedPrice     float64   `json:"estimated_price"`
	DistanceToPickupKm float64   `json:"distance_to_pickup_km"`
	ExpiresAt          time.Time `json:"expires_at"`
}

// TowOfferResponse is the driver's answer to an offer.
type TowOfferResponse struct {
	ID        uuid.UUID `json:"offer_id"`
	RequestID uuid.UUID `json:"request_id"`
	Accepted  bool      `json:"accepted"`
}
