package models

import (
	"encoding/json"
	"time"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
)

// Request is a single tow request and its lifecycle record.
type Request struct {
	ID            uuid.UUID
	RequestNumber string
	Status        types.RequestStatus

	UserID   uuid.UUID
	DriverID *uuid.UUID

	TowType         types.TowType
	VehicleCategory types.VehicleCategory

	Pickup  Location
	Dropoff *Location

	// Set exactly once at creation, never mutated afterwards
	EstimatedPrice float64
	// Set at completion, may differ from the estimate, immutable once set
	ActualPrice *float64

	CancellationReason *string

	// Opaque references owned by external collaborators
	Artifacts *CompletionArtifacts

	// Временные метки жизненного цикла
	CreatedAt     time.Time
	BroadcastAt   *time.Time
	AssignedAt    *time.Time
	ArrivedAt     *time.Time
	InTransitAt   *time.Time
	DestinationAt *time.Time
	CompletedAt   *time.Time
	CancelledAt   *time.Time
}

// CompletionArtifacts are opaque foreign references attached at
// completion. The core never inspects their content.
type CompletionArtifacts struct {
	PhotoRefs     []string `json:"photo_refs,omitempty"`
	RecipientName string   `json:"recipient_name,omitempty"`
	SignatureRef  string   `json:"signature_ref,omitempty"`
	InvoiceRef    string   `json:"invoice_ref,omitempty"`
}

// TimelineEntry is one recorded lifecycle event. Seq is assigned by
// storage in the order transitions were accepted.
type TimelineEntry struct {
	Seq       int64           `json:"seq"`
	EventType string          `json:"event_type"`
	EventData json.RawMessage `json:"event_data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// IsTerminal reports whether the request is in a terminal status.
func (r *Request) IsTerminal() bool {
	return r.Status.IsTerminal()
}
