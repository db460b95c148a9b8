package request

import (
	"errors"
	"testing"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
)

func TestNext_HappyPath(t *testing.T) {
	steps := []struct {
		event types.EventKind
		want  types.RequestStatus
	}{
		{types.EventBroadcast, types.StatusBroadcast},
		{types.EventDriverAccept, types.StatusAccepted},
		{types.EventDriverArrived, types.StatusArrived},
		{types.EventStartTransit, types.StatusInTransit},
		{types.EventDestinationReached, types.StatusDestinationReached},
		{types.EventComplete, types.StatusCompleted},
	}

	status := types.StatusPending
	for _, step := range steps {
		next, err := Next(status, step.event)
		if err != nil {
			t.Fatalf("event %s from %s: unexpected error: %v", step.event, status, err)
		}
		if next != step.want {
			t.Fatalf("event %s from %s: got %s want %s", step.event, status, next, step.want)
		}
		status = next
	}
}

func TestNext_CancelFromEveryNonTerminal(t *testing.T) {
	statuses := []types.RequestStatus{
		types.StatusPending,
		types.StatusBroadcast,
		types.StatusAccepted,
		types.StatusArrived,
		types.StatusInTransit,
		types.StatusDestinationReached,
	}

	for _, st := range statuses {
		next, err := Next(st, types.EventCancel)
		if err != nil {
			t.Fatalf("cancel from %s: unexpected error: %v", st, err)
		}
		if next != types.StatusCancelled {
			t.Fatalf("cancel from %s: got %s", st, next)
		}
	}
}

func TestNext_TerminalStatesRejectEverything(t *testing.T) {
	events := []types.EventKind{
		types.EventBroadcast,
		types.EventDriverAccept,
		types.EventDriverDecline,
		types.EventTimeout,
		types.EventDriverArrived,
		types.EventStartTransit,
		types.EventDestinationReached,
		types.EventComplete,
		types.EventCancel,
	}

	for _, st := range []types.RequestStatus{types.StatusCompleted, types.StatusCancelled} {
		for _, ev := range events {
			if _, err := Next(st, ev); !errors.Is(err, &types.InvalidTransitionError{}) {
				t.Fatalf("event %s from terminal %s: want InvalidTransitionError, got %v", ev, st, err)
			}
		}
	}
}

func TestNext_UndefinedCombinations(t *testing.T) {
	cases := []struct {
		from  types.RequestStatus
		event types.EventKind
	}{
		{types.StatusPending, types.EventDriverAccept},
		{types.StatusPending, types.EventComplete},
		{types.StatusBroadcast, types.EventDriverArrived},
		{types.StatusAccepted, types.EventDriverAccept},
		{types.StatusAccepted, types.EventTimeout},
		{types.StatusArrived, types.EventDestinationReached},
		{types.StatusInTransit, types.EventComplete},
		{types.StatusDestinationReached, types.EventStartTransit},
	}

	for _, tc := range cases {
		_, err := Next(tc.from, tc.event)
		if err == nil {
			t.Fatalf("event %s from %s: expected error", tc.event, tc.from)
		}

		var invalid *types.InvalidTransitionError
		if !errors.As(err, &invalid) {
			t.Fatalf("event %s from %s: want InvalidTransitionError, got %v", tc.event, tc.from, err)
		}
		if invalid.From != tc.from || invalid.Event != tc.event {
			t.Fatalf("error carries wrong context: %+v", invalid)
		}
	}
}

func TestNext_DeclineIsSelfLoop(t *testing.T) {
	next, err := Next(types.StatusBroadcast, types.EventDriverDecline)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != types.StatusBroadcast {
		t.Fatalf("decline must keep status BROADCAST, got %s", next)
	}
}

func TestNext_TimeoutReturnsToPending(t *testing.T) {
	next, err := Next(types.StatusBroadcast, types.EventTimeout)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != types.StatusPending {
		t.Fatalf("timeout must return to PENDING, got %s", next)
	}
}
