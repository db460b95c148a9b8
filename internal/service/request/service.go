package request

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/internal/service/fare"
	"github.com/Dias-T/tow-dispatch-system/internal/service/geo"
	"github.com/Dias-T/tow-dispatch-system/pkg/logger"
	wrap "github.com/Dias-T/tow-dispatch-system/pkg/logger/wrapper"
	"github.com/Dias-T/tow-dispatch-system/pkg/metrics"
	"github.com/Dias-T/tow-dispatch-system/pkg/trm"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
)

const serviceName = "dispatch"

/*
Lifecycle owns every status change of a tow request. All writes go
through the transition table in machine.go, invalid events leave the
stored status untouched and the timeline gets an entry only when a
transition is accepted.
*/
type Lifecycle struct {
	requests RequestRepo
	drivers  DriverRepo
	timeline EventRepo
	fares    FareQuoter
	finder   CandidateFinder
	notifier Notifier

	searchRadiusKm float64

	trm trm.TxManager
	l   logger.Logger
}

func NewLifecycle(
	requests RequestRepo,
	drivers DriverRepo,
	timeline EventRepo,
	fares FareQuoter,
	finder CandidateFinder,
	notifier Notifier,
	searchRadiusKm float64,
	trm trm.TxManager,
	l logger.Logger,
) *Lifecycle {
	return &Lifecycle{
		requests:       requests,
		drivers:        drivers,
		timeline:       timeline,
		fares:          fares,
		finder:         finder,
		notifier:       notifier,
		searchRadiusKm: searchRadiusKm,
		trm:            trm,
		l:              l,
	}
}

// CreateInput carries the caller-supplied part of a new request.
type CreateInput struct {
	UserID          uuid.UUID
	TowType         types.TowType
	VehicleCategory types.VehicleCategory
	Pickup          models.Location
	Dropoff         *models.Location
}

// Create quotes the fare, assigns a request number and stores the new
// request in PENDING. The estimated price is fixed here and never
// recalculated afterwards.
func (s *Lifecycle) Create(ctx context.Context, in CreateInput) (*models.Request, error) {
	ctx = wrap.WithAction(ctx, "create_request")
	ctx = wrap.WithUserID(ctx, in.UserID.String())

	if !in.TowType.IsValid() {
		return nil, wrap.Error(ctx, types.ErrUnknownTowType)
	}
	if !in.VehicleCategory.IsValid() {
		return nil, wrap.Error(ctx, types.ErrUnknownVehicle)
	}

	// нет точки назначения, считаем только подачу
	distance := 0.0
	if in.Dropoff != nil {
		distance = geo.HaversineDistance(
			in.Pickup.Latitude, in.Pickup.Longitude,
			in.Dropoff.Latitude, in.Dropoff.Longitude,
		)
	}

	breakdown, err := s.fares.Quote(ctx, fare.QuoteInput{
		TowType:         in.TowType,
		DistanceKm:      distance,
		VehicleCategory: in.VehicleCategory,
		Pickup:          in.Pickup,
		Dropoff:         in.Dropoff,
	})
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("could not quote fare: %w", err))
	}

	var created *models.Request

	err = s.trm.Do(ctx, func(ctx context.Context) error {
		number, err := s.generateRequestNumber(ctx)
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("could not generate request number: %w", err))
		}

		req := &models.Request{
			ID:              uuid.New(),
			RequestNumber:   number,
			Status:          types.StatusPending,
			UserID:          in.UserID,
			TowType:         in.TowType,
			VehicleCategory: in.VehicleCategory,
			Pickup:          in.Pickup,
			Dropoff:         in.Dropoff,
			EstimatedPrice:  breakdown.TotalFare,
			CreatedAt:       time.Now(),
		}

		created, err = s.requests.Create(ctx, req)
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("could not create request in repo: %w", err))
		}

		return s.appendTimeline(ctx, created.ID, types.EventCreate, breakdown)
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	metrics.TowRequestsTotal.WithLabelValues(serviceName, string(created.Status)).Inc()
	metrics.ActiveTowsGauge.WithLabelValues(serviceName).Inc()

	return created, nil
}

// Get returns the request by id.
func (s *Lifecycle) Get(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	ctx = wrap.WithAction(ctx, "get_request")

	req, err := s.requests.Get(ctx, id)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return req, nil
}

// Timeline returns every recorded lifecycle event for the request.
func (s *Lifecycle) Timeline(ctx context.Context, id uuid.UUID) ([]models.TimelineEntry, error) {
	ctx = wrap.WithAction(ctx, "get_request_timeline")

	if _, err := s.requests.Get(ctx, id); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	entries, err := s.timeline.ListByRequest(ctx, id)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return entries, nil
}

// ListByUser returns the user's requests, newest first.
func (s *Lifecycle) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Request, error) {
	ctx = wrap.WithAction(ctx, "list_user_requests")
	ctx = wrap.WithUserID(ctx, userID.String())

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	requests, err := s.requests.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return requests, nil
}

// Broadcast moves the request from PENDING to BROADCAST and returns the
// candidate drivers sorted closest first. When no driver is in range the
// request stays PENDING and ErrNoCandidateDrivers is returned.
func (s *Lifecycle) Broadcast(ctx context.Context, id uuid.UUID) (*models.Request, []models.DriverWithDistance, error) {
	ctx = wrap.WithAction(ctx, "broadcast_request")
	ctx = wrap.WithTowID(ctx, id.String())

	req, err := s.requests.Get(ctx, id)
	if err != nil {
		return nil, nil, wrap.Error(ctx, err)
	}

	next, err := Next(req.Status, types.EventBroadcast)
	if err != nil {
		return nil, nil, wrap.Error(ctx, err)
	}

	candidates, err := s.finder.FindNearby(ctx, req.Pickup, s.searchRadiusKm)
	if err != nil {
		return nil, nil, wrap.Error(ctx, fmt.Errorf("could not search candidates: %w", err))
	}
	if len(candidates) == 0 {
		return nil, nil, wrap.Error(ctx, types.ErrNoCandidateDrivers)
	}

	err = s.trm.Do(ctx, func(ctx context.Context) error {
		now := time.Now()
		expect := req.Status
		req.Status = next
		req.BroadcastAt = &now

		ok, err := s.requests.Update(ctx, req, expect)
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("could not update request: %w", err))
		}
		if !ok {
			return s.lostRace(ctx, req.ID, types.EventBroadcast)
		}

		return s.appendTimeline(ctx, req.ID, types.EventBroadcast, map[string]any{
			"candidates": len(candidates),
			"radius_km":  s.searchRadiusKm,
		})
	})
	if err != nil {
		return nil, nil, err
	}

	s.notify(ctx, req.UserID, types.NotifyRequestBroadcast, req, map[string]any{
		"candidates": len(candidates),
	})

	return req, candidates, nil
}

// Apply runs a lifecycle event through the transition gate. Undefined
// combinations return InvalidTransitionError, acceptance races return
// AlreadyAssignedError naming the winner.
func (s *Lifecycle) Apply(ctx context.Context, id uuid.UUID, ev Event) (*models.Request, error) {
	ctx = wrap.WithTowID(ctx, id.String())

	switch e := ev.(type) {
	case Broadcast:
		req, _, err := s.Broadcast(ctx, id)
		return req, err
	case DriverAccept:
		return s.accept(ctx, id, e)
	case DriverDecline:
		return s.decline(ctx, id, e)
	case Timeout:
		return s.markTimedOut(ctx, id)
	case DriverArrived:
		return s.progress(ctx, id, e, e.DriverID)
	case StartTransit:
		return s.progress(ctx, id, e, e.DriverID)
	case DestinationReached:
		return s.progress(ctx, id, e, e.DriverID)
	case Complete:
		return s.complete(ctx, id, e)
	case Cancel:
		return s.cancel(ctx, id, e)
	case AdminOverride:
		ctx = wrap.WithAction(ctx, types.ActionAdminOverride)
		s.l.Info(ctx, "admin override", "admin_id", e.AdminID, "event", ev.Kind().String())
		return s.Apply(ctx, id, e.Wrapped)
	default:
		return nil, wrap.Error(ctx, fmt.Errorf("%w: unknown event %s", types.ErrInvalidArgument, ev.Kind()))
	}
}

// accept assigns the driver to the request. Exactly one driver wins, the
// conditional update in the repository is the arbiter. Losers get
// AlreadyAssignedError with the winner's id.
func (s *Lifecycle) accept(ctx context.Context, id uuid.UUID, ev DriverAccept) (*models.Request, error) {
	ctx = wrap.WithAction(ctx, "accept_request")
	ctx = wrap.WithDriverID(ctx, ev.DriverID.String())

	var accepted *models.Request

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		req, err := s.requests.Get(ctx, id)
		if err != nil {
			return wrap.Error(ctx, err)
		}

		next, err := Next(req.Status, types.EventDriverAccept)
		if err != nil {
			if req.DriverID != nil {
				return wrap.Error(ctx, &types.AlreadyAssignedError{
					RequestID: req.ID.String(),
					DriverID:  req.DriverID.String(),
				})
			}
			return wrap.Error(ctx, err)
		}

		busy, err := s.requests.HasActiveForDriver(ctx, ev.DriverID)
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("could not check driver assignments: %w", err))
		}
		if busy {
			return wrap.Error(ctx, types.ErrDriverOnActiveTow)
		}

		now := time.Now()
		expect := req.Status
		req.Status = next
		req.DriverID = &ev.DriverID
		req.AssignedAt = &now

		ok, err := s.requests.Update(ctx, req, expect)
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("could not update request: %w", err))
		}
		if !ok {
			metrics.DispatchAssignRacesTotal.WithLabelValues(serviceName).Inc()
			return s.lostRace(ctx, req.ID, types.EventDriverAccept)
		}

		if err := s.drivers.SetAvailability(ctx, ev.DriverID, false); err != nil {
			return wrap.Error(ctx, fmt.Errorf("could not mark driver busy: %w", err))
		}

		if err := s.appendTimeline(ctx, req.ID, types.EventDriverAccept, map[string]any{
			"driver_id": ev.DriverID.String(),
		}); err != nil {
			return err
		}

		accepted = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, accepted.UserID, types.NotifyDriverAccepted, accepted, map[string]any{
		"driver_id": ev.DriverID.String(),
	})

	return accepted, nil
}

// decline is a self-loop: the status stays BROADCAST, only the timeline
// records that the driver is out.
func (s *Lifecycle) decline(ctx context.Context, id uuid.UUID, ev DriverDecline) (*models.Request, error) {
	ctx = wrap.WithAction(ctx, "decline_request")
	ctx = wrap.WithDriverID(ctx, ev.DriverID.String())

	req, err := s.requests.Get(ctx, id)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	if _, err := Next(req.Status, types.EventDriverDecline); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	err = s.appendTimeline(ctx, req.ID, types.EventDriverDecline, map[string]any{
		"driver_id": ev.DriverID.String(),
	})
	if err != nil {
		return nil, err
	}

	return req, nil
}

// markTimedOut returns the request to PENDING after the broadcast window
// elapsed without acceptance. When the request already moved on the
// transition is rejected and the caller treats it as a no-op.
func (s *Lifecycle) markTimedOut(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	ctx = wrap.WithAction(ctx, types.ActionBroadcastTimeout)

	var timedOut *models.Request

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		req, err := s.requests.Get(ctx, id)
		if err != nil {
			return wrap.Error(ctx, err)
		}

		next, err := Next(req.Status, types.EventTimeout)
		if err != nil {
			return wrap.Error(ctx, err)
		}

		expect := req.Status
		req.Status = next

		ok, err := s.requests.Update(ctx, req, expect)
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("could not update request: %w", err))
		}
		if !ok {
			return s.lostRace(ctx, req.ID, types.EventTimeout)
		}

		if err := s.appendTimeline(ctx, req.ID, types.EventTimeout, nil); err != nil {
			return err
		}

		timedOut = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	return timedOut, nil
}

// progress advances the request along the happy path (ARRIVED,
// IN_TRANSIT, DESTINATION_REACHED). Only the assigned driver may do it.
func (s *Lifecycle) progress(ctx context.Context, id uuid.UUID, ev Event, driverID uuid.UUID) (*models.Request, error) {
	ctx = wrap.WithAction(ctx, "progress_request")
	ctx = wrap.WithDriverID(ctx, driverID.String())

	var updated *models.Request

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		req, err := s.requests.Get(ctx, id)
		if err != nil {
			return wrap.Error(ctx, err)
		}

		if err := s.assignedTo(req, driverID); err != nil {
			return wrap.Error(ctx, err)
		}

		next, err := Next(req.Status, ev.Kind())
		if err != nil {
			return wrap.Error(ctx, err)
		}

		now := time.Now()
		expect := req.Status
		req.Status = next

		switch ev.Kind() {
		case types.EventDriverArrived:
			req.ArrivedAt = &now
		case types.EventStartTransit:
			req.InTransitAt = &now
		case types.EventDestinationReached:
			req.DestinationAt = &now
		}

		ok, err := s.requests.Update(ctx, req, expect)
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("could not update request: %w", err))
		}
		if !ok {
			return s.lostRace(ctx, req.ID, ev.Kind())
		}

		if err := s.appendTimeline(ctx, req.ID, ev.Kind(), nil); err != nil {
			return err
		}

		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch ev.Kind() {
	case types.EventDriverArrived:
		s.notify(ctx, updated.UserID, types.NotifyDriverArrived, updated, nil)
	case types.EventStartTransit:
		s.notify(ctx, updated.UserID, types.NotifyInTransit, updated, nil)
	}

	return updated, nil
}

// complete freezes the actual price and the completion artifacts, frees
// the driver and updates their stats. The actual price is written once
// and never touched again.
func (s *Lifecycle) complete(ctx context.Context, id uuid.UUID, ev Complete) (*models.Request, error) {
	ctx = wrap.WithAction(ctx, "complete_request")
	ctx = wrap.WithDriverID(ctx, ev.DriverID.String())

	var completed *models.Request

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		req, err := s.requests.Get(ctx, id)
		if err != nil {
			return wrap.Error(ctx, err)
		}

		if err := s.assignedTo(req, ev.DriverID); err != nil {
			return wrap.Error(ctx, err)
		}

		next, err := Next(req.Status, types.EventComplete)
		if err != nil {
			return wrap.Error(ctx, err)
		}

		if ev.ActualPrice < 0 {
			return wrap.Error(ctx, fmt.Errorf("%w: actual price must be >= 0", types.ErrInvalidArgument))
		}

		now := time.Now()
		expect := req.Status
		price := ev.ActualPrice
		artifacts := ev.Artifacts

		req.Status = next
		req.ActualPrice = &price
		req.Artifacts = &artifacts
		req.CompletedAt = &now

		ok, err := s.requests.Update(ctx, req, expect)
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("could not update request: %w", err))
		}
		if !ok {
			return s.lostRace(ctx, req.ID, types.EventComplete)
		}

		if err := s.drivers.SetAvailability(ctx, ev.DriverID, true); err != nil {
			return wrap.Error(ctx, fmt.Errorf("could not free driver: %w", err))
		}
		// one more finished job and its earnings on top of the driver's totals
		if err := s.drivers.UpdateStats(ctx, ev.DriverID, 1, price); err != nil {
			return wrap.Error(ctx, fmt.Errorf("could not update driver stats: %w", err))
		}

		if err := s.appendTimeline(ctx, req.ID, types.EventComplete, map[string]any{
			"actual_price": price,
			"artifacts":    artifacts,
		}); err != nil {
			return err
		}

		completed = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ActiveTowsGauge.WithLabelValues(serviceName).Dec()

	s.notify(ctx, completed.UserID, types.NotifyRequestCompleted, completed, map[string]any{
		"actual_price": ev.ActualPrice,
	})

	return completed, nil
}

// cancel aborts the request from any non-terminal status. An assigned
// driver is freed.
func (s *Lifecycle) cancel(ctx context.Context, id uuid.UUID, ev Cancel) (*models.Request, error) {
	ctx = wrap.WithAction(ctx, "cancel_request")

	var cancelled *models.Request

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		req, err := s.requests.Get(ctx, id)
		if err != nil {
			return wrap.Error(ctx, err)
		}

		next, err := Next(req.Status, types.EventCancel)
		if err != nil {
			return wrap.Error(ctx, err)
		}

		now := time.Now()
		expect := req.Status
		reason := ev.Reason

		req.Status = next
		req.CancellationReason = &reason
		req.CancelledAt = &now

		ok, err := s.requests.Update(ctx, req, expect)
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("could not update request: %w", err))
		}
		if !ok {
			return s.lostRace(ctx, req.ID, types.EventCancel)
		}

		if req.DriverID != nil {
			if err := s.drivers.SetAvailability(ctx, *req.DriverID, true); err != nil {
				return wrap.Error(ctx, fmt.Errorf("could not free driver: %w", err))
			}
		}

		if err := s.appendTimeline(ctx, req.ID, types.EventCancel, map[string]any{
			"reason": reason,
		}); err != nil {
			return err
		}

		cancelled = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ActiveTowsGauge.WithLabelValues(serviceName).Dec()

	s.notify(ctx, cancelled.UserID, types.NotifyRequestCancelled, cancelled, map[string]any{
		"reason": ev.Reason,
	})
	if cancelled.DriverID != nil {
		s.notify(ctx, *cancelled.DriverID, types.NotifyRequestCancelled, cancelled, map[string]any{
			"reason": ev.Reason,
		})
	}

	return cancelled, nil
}

// lostRace re-reads the request after a conditional update failed and
// maps the fresh state to the right error.
func (s *Lifecycle) lostRace(ctx context.Context, id uuid.UUID, event types.EventKind) error {
	fresh, err := s.requests.Get(ctx, id)
	if err != nil {
		return wrap.Error(ctx, err)
	}

	if event == types.EventDriverAccept && fresh.DriverID != nil {
		return wrap.Error(ctx, &types.AlreadyAssignedError{
			RequestID: fresh.ID.String(),
			DriverID:  fresh.DriverID.String(),
		})
	}

	return wrap.Error(ctx, &types.InvalidTransitionError{From: fresh.Status, Event: event})
}

func (s *Lifecycle) assignedTo(req *models.Request, driverID uuid.UUID) error {
	if req.DriverID == nil || *req.DriverID != driverID {
		return fmt.Errorf("%w: driver is not assigned to this request", types.ErrInvalidArgument)
	}
	return nil
}

func (s *Lifecycle) appendTimeline(ctx context.Context, id uuid.UUID, kind types.EventKind, payload any) error {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("could not marshal timeline payload: %w", err))
		}
		data = b
	}

	if err := s.timeline.AppendEvent(ctx, id, kind, data); err != nil {
		return wrap.Error(ctx, fmt.Errorf("could not append timeline event: %w", err))
	}
	return nil
}

// notify publishes a notification and swallows the error. Delivery
// failures never fail the transition that triggered them.
func (s *Lifecycle) notify(ctx context.Context, recipient uuid.UUID, event types.NotifyEvent, req *models.Request, payload map[string]any) {
	msg := models.NotificationMessage{
		RecipientID:   recipient,
		EventType:     event,
		RequestID:     req.ID,
		RequestNumber: req.RequestNumber,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: wrap.GetRequestID(ctx),
	}

	if err := s.notifier.Notify(ctx, msg); err != nil {
		ctx = wrap.WithAction(ctx, types.ActionNotificationPublishFail)
		s.l.Error(ctx, "failed to publish notification", err, "event_type", event.String())
	}
}
