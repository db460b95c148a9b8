package request

import (
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
)

// transitions is the full lifecycle graph. A missing entry means the
// event is not defined from that status. CANCEL rows are spelled out per
// status rather than special-cased so the table is the single source of
// truth.
//
//	PENDING → BROADCAST → ACCEPTED → ARRIVED → IN_TRANSIT →
//	DESTINATION_REACHED → COMPLETED
//
// CANCELLED is reachable from every non-terminal status. DRIVER_DECLINE
// is a self-loop: the status stays BROADCAST, only the candidate set
// shrinks.
var transitions = map[types.RequestStatus]map[types.EventKind]types.RequestStatus{
	types.StatusPending: {
		types.EventBroadcast: types.StatusBroadcast,
		types.EventCancel:    types.StatusCancelled,
	},
	types.StatusBroadcast: {
		types.EventDriverAccept:  types.StatusAccepted,
		types.EventDriverDecline: types.StatusBroadcast,
		types.EventTimeout:       types.StatusPending,
		types.EventCancel:        types.StatusCancelled,
	},
	types.StatusAccepted: {
		types.EventDriverArrived: types.StatusArrived,
		types.EventCancel:        types.StatusCancelled,
	},
	types.StatusArrived: {
		types.EventStartTransit: types.StatusInTransit,
		types.EventCancel:       types.StatusCancelled,
	},
	types.StatusInTransit: {
		types.EventDestinationReached: types.StatusDestinationReached,
		types.EventCancel:             types.StatusCancelled,
	},
	types.StatusDestinationReached: {
		types.EventComplete: types.StatusCompleted,
		types.EventCancel:   types.StatusCancelled,
	},
	// COMPLETED and CANCELLED are terminal, no rows.
}

// Next returns the status the request moves to when event fires from
// current. Undefined combinations return InvalidTransitionError and the
// caller must leave the stored status untouched.
func Next(current types.RequestStatus, event types.EventKind) (types.RequestStatus, error) {
	row, ok := transitions[current]
	if !ok {
		return "", &types.InvalidTransitionError{From: current, Event: event}
	}

	next, ok := row[event]
	if !ok {
		return "", &types.InvalidTransitionError{From: current, Event: event}
	}

	return next, nil
}
