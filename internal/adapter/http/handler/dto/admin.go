package dto

import (
	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/internal/service/request"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
	"github.com/Dias-T/tow-dispatch-system/pkg/validator"
)

// OverrideReq carries an event an administrator wants to force through
// the lifecycle. The event still passes the regular transition gate.
type OverrideReq struct {
	Event       string     `json:"event"`
	DriverID    *uuid.UUID `json:"driver_id"`
	Reason      string     `json:"reason"`
	ActualPrice *float64   `json:"actual_price"`
}

func (r *OverrideReq) Validate(v *validator.Validator) {
	kind := types.EventKind(r.Event)
	v.Check(r.Event != "", "event", "must be provided")
	v.Check(
		validator.In(kind,
			types.EventCancel,
			types.EventTimeout,
			types.EventDriverArrived,
			types.EventStartTransit,
			types.EventDestinationReached,
			types.EventComplete,
		),
		"event", "is not an overridable event",
	)

	switch kind {
	case types.EventCancel:
		v.Check(r.Reason != "", "reason", "must be provided")
	case types.EventDriverArrived, types.EventStartTransit, types.EventDestinationReached:
		v.Check(r.DriverID != nil, "driver_id", "must be provided")
	case types.EventComplete:
		v.Check(r.DriverID != nil, "driver_id", "must be provided")
		v.Check(r.ActualPrice != nil, "actual_price", "must be provided")
		if r.ActualPrice != nil {
			v.Check(*r.ActualPrice >= 0, "actual_price", "must not be negative")
		}
	}
}

// ToEvent builds the lifecycle event wrapped in an admin override.
func (r *OverrideReq) ToEvent(adminID uuid.UUID) request.Event {
	var ev request.Event
	switch types.EventKind(r.Event) {
	case types.EventCancel:
		ev = request.Cancel{Reason: r.Reason}
	case types.EventTimeout:
		ev = request.Timeout{}
	case types.EventDriverArrived:
		ev = request.DriverArrived{DriverID: *r.DriverID}
	case types.EventStartTransit:
		ev = request.StartTransit{DriverID: *r.DriverID}
	case types.EventDestinationReached:
		ev = request.DestinationReached{DriverID: *r.DriverID}
	case types.EventComplete:
		ev = request.Complete{DriverID: *r.DriverID, ActualPrice: *r.ActualPrice, Artifacts: models.CompletionArtifacts{}}
	}
	return request.AdminOverride{AdminID: adminID, Wrapped: ev}
}
