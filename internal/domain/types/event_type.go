package types

// EventKind identifies a lifecycle event in the transition table and the
// persisted request timeline.
type EventKind string

func (e EventKind) String() string {
	return string(e)
}

const (
	EventCreate             EventKind = "CREATE"
	EventBroadcast          EventKind = "BROADCAST"
	EventDriverAccept       EventKind = "DRIVER_ACCEPT"
	EventDriverDecline      EventKind = "DRIVER_DECLINE"
	EventTimeout            EventKind = "TIMEOUT"
	EventDriverArrived      EventKind = "DRIVER_ARRIVED"
	EventStartTransit       EventKind = "START_TRANSIT"
	EventDestinationReached EventKind = "DESTINATION_REACHED"
	EventComplete           EventKind = "COMPLETE"
	EventCancel             EventKind = "CANCEL"
	EventAdminOverride      EventKind = "ADMIN_OVERRIDE"
)

// NotifyEvent identifies externally visible notifications sent to users
// and drivers after state transitions.
type NotifyEvent string

func (n NotifyEvent) String() string {
	return string(n)
}

const (
	NotifyRequestBroadcast NotifyEvent = "REQUEST_BROADCAST"
	NotifyDriverAccepted   NotifyEvent = "DRIVER_ACCEPTED"
	NotifyDriverArrived    NotifyEvent = "DRIVER_ARRIVED"
	NotifyInTransit        NotifyEvent = "IN_TRANSIT"
	NotifyRequestCompleted NotifyEvent = "REQUEST_COMPLETED"
	NotifyRequestCancelled NotifyEvent = "REQUEST_CANCELLED"
	NotifyOfferReceived    NotifyEvent = "OFFER_RECEIVED"
)
