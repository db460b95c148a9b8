package request

import (
	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
)

// Event is a tagged lifecycle event. Every mutation of a request's
// status goes through the transition gate with one of these variants,
// there is no other write path.
type Event interface {
	Kind() types.EventKind
}

type (
	// Broadcast offers the request to the candidate driver set.
	Broadcast struct{}

	// DriverAccept is a driver answering an offer.
	DriverAccept struct {
		DriverID uuid.UUID
	}

	// DriverDecline removes the driver from further offers for this
	// request. The status is unchanged.
	DriverDecline struct {
		DriverID uuid.UUID
	}

	// Timeout fires when the broadcast window elapses without acceptance.
	Timeout struct{}

	// DriverArrived marks arrival at the pickup point.
	DriverArrived struct {
		DriverID uuid.UUID
	}

	// StartTransit marks the start of the tow leg.
	StartTransit struct {
		DriverID uuid.UUID
	}

	// DestinationReached marks arrival at the dropoff point.
	DestinationReached struct {
		DriverID uuid.UUID
	}

	// Complete freezes the actual price and attaches completion artifacts.
	Complete struct {
		DriverID    uuid.UUID
		ActualPrice float64
		Artifacts   models.CompletionArtifacts
	}

	// Cancel aborts the request from any non-terminal state.
	Cancel struct {
		Reason string
	}

	// AdminOverride wraps another event issued by an administrator. It is
	// validated against the same transition table as the wrapped event and
	// logged separately, overrides are not a side door around the gate.
	AdminOverride struct {
		AdminID uuid.UUID
		Wrapped Event
	}
)

func (Broadcast) Kind() types.EventKind          { return types.EventBroadcast }
func (DriverAccept) Kind() types.EventKind       { return types.EventDriverAccept }
func (DriverDecline) Kind() types.EventKind      { return types.EventDriverDecline }
func (Timeout) Kind() types.EventKind            { return types.EventTimeout }
func (DriverArrived) Kind() types.EventKind      { return types.EventDriverArrived }
func (StartTransit) Kind() types.EventKind       { return types.EventStartTransit }
func (DestinationReached) Kind() types.EventKind { return types.EventDestinationReached }
func (Complete) Kind() types.EventKind           { return types.EventComplete }
func (Cancel) Kind() types.EventKind             { return types.EventCancel }

func (o AdminOverride) Kind() types.EventKind { return o.Wrapped.Kind() }
