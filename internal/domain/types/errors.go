package types

import (
	"errors"
	"fmt"
)

var (
	ErrDriverNotFound  = errors.New("driver not found")
	ErrRequestNotFound = errors.New("tow request not found")
	ErrUserNotFound    = errors.New("user not found")

	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNegativeDistance   = fmt.Errorf("%w: distance must be >= 0", ErrInvalidArgument)
	ErrUnknownVehicle     = fmt.Errorf("%w: unknown vehicle category", ErrInvalidArgument)
	ErrUnknownTowType     = fmt.Errorf("%w: unknown tow type", ErrInvalidArgument)
	ErrDriverHasNoFix     = errors.New("driver has not reported a position yet")
	ErrDriverOnActiveTow  = errors.New("driver already assigned to an active tow")
	ErrNoCandidateDrivers = errors.New("no candidate drivers in range")
)

// InvalidTransitionError is returned when a lifecycle event is not
// defined for the request's current status. The stored status is left
// untouched when this error is returned.
type InvalidTransitionError struct {
	From  RequestStatus
	Event EventKind
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: event %s not allowed from status %s", e.Event, e.From)
}

// Is allows errors.Is matching against a bare *InvalidTransitionError target.
func (e *InvalidTransitionError) Is(target error) bool {
	_, ok := target.(*InvalidTransitionError)
	return ok
}

// AlreadyAssignedError is returned to drivers that lost the race for a
// broadcast request. It names the winner so the client can clear its
// pending offer state.
type AlreadyAssignedError struct {
	RequestID string
	DriverID  string
}

func (e *AlreadyAssignedError) Error() string {
	return fmt.Sprintf("request %s already assigned to driver %s", e.RequestID, e.DriverID)
}

func (e *AlreadyAssignedError) Is(target error) bool {
	_, ok := target.(*AlreadyAssignedError)
	return ok
}
