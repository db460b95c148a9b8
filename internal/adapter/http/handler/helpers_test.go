package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
)

func TestGetCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{types.ErrRequestNotFound, http.StatusNotFound},
		{types.ErrDriverNotFound, http.StatusNotFound},
		{types.ErrInvalidArgument, http.StatusBadRequest},
		{types.ErrUnknownTowType, http.StatusBadRequest},
		{fmt.Errorf("service: %w", types.ErrNegativeDistance), http.StatusBadRequest},
		{&types.InvalidTransitionError{From: types.StatusCompleted, Event: types.EventCancel}, http.StatusConflict},
		{&types.AlreadyAssignedError{RequestID: "r", DriverID: "d"}, http.StatusConflict},
		{types.ErrDriverOnActiveTow, http.StatusConflict},
		{types.ErrNoCandidateDrivers, http.StatusUnprocessableEntity},
		{fmt.Errorf("something else"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		if got := GetCode(tc.err); got != tc.want {
			t.Errorf("GetCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

// Оба конфликта отдают 409, клиент различает их по полю code.
func TestErrorCode_DistinguishesConflicts(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&types.AlreadyAssignedError{RequestID: "r", DriverID: "d"}, "already_assigned"},
		{fmt.Errorf("dispatch: %w", &types.AlreadyAssignedError{RequestID: "r", DriverID: "d"}), "already_assigned"},
		{&types.InvalidTransitionError{From: types.StatusCompleted, Event: types.EventCancel}, "invalid_transition"},
		{types.ErrDriverOnActiveTow, "driver_busy"},
		{types.ErrRequestNotFound, ""},
		{fmt.Errorf("something else"), ""},
	}

	for _, tc := range tests {
		if got := ErrorCode(tc.err); got != tc.want {
			t.Errorf("ErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
