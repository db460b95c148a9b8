package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/internal/service/request"
	"github.com/Dias-T/tow-dispatch-system/pkg/logger"
	wrap "github.com/Dias-T/tow-dispatch-system/pkg/logger/wrapper"
	"github.com/Dias-T/tow-dispatch-system/pkg/metrics"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
)

const serviceName = "dispatch"

// Lifecycle is the slice of the request service the coordinator drives.
type Lifecycle interface {
	Broadcast(ctx context.Context, id uuid.UUID) (*models.Request, []models.DriverWithDistance, error)
	Apply(ctx context.Context, id uuid.UUID, ev request.Event) (*models.Request, error)
}

// OfferSender pushes a tow offer to a connected driver. Send failures
// are per-driver and never abort the broadcast.
type OfferSender interface {
	SendOffer(ctx context.Context, driverID uuid.UUID, offer models.TowOffer) error
}

/*
Coordinator orchestrates the broadcast of a request to nearby drivers
and resolves their responses. Responses for the same request are
serialized on a per-request mutex, the conditional update in the
lifecycle stays the final arbiter of who wins.
*/
type Coordinator struct {
	lifecycle Lifecycle
	sender    OfferSender

	window    time.Duration // сколько ждем ответа водителей
	maxRounds int

	locks *keyedMutex

	mu     sync.Mutex
	active map[uuid.UUID]*broadcastState
	// водители, отказавшиеся от заявки; живет через раунды,
	// отказавшийся водитель больше не получает эту заявку
	declined map[uuid.UUID]map[uuid.UUID]struct{}

	l logger.Logger
}

// broadcastState tracks one open broadcast round.
type broadcastState struct {
	timer     *time.Timer
	offered   map[uuid.UUID]struct{}
	round     int
	expiresAt time.Time
}

func NewCoordinator(lifecycle Lifecycle, sender OfferSender, window time.Duration, maxRounds int, l logger.Logger) *Coordinator {
	return &Coordinator{
		lifecycle: lifecycle,
		sender:    sender,
		window:    window,
		maxRounds: maxRounds,
		locks:     newKeyedMutex(),
		active:    make(map[uuid.UUID]*broadcastState),
		declined:  make(map[uuid.UUID]map[uuid.UUID]struct{}),
		l:         l,
	}
}

// Dispatch broadcasts the request to the candidate drivers and arms the
// response timer. When nobody is in range ErrNoCandidateDrivers is
// returned and the request stays PENDING.
func (c *Coordinator) Dispatch(ctx context.Context, requestID uuid.UUID) error {
	ctx = wrap.WithAction(ctx, "dispatch_request")
	ctx = wrap.WithTowID(ctx, requestID.String())

	unlock := c.locks.Lock(requestID)
	defer unlock()

	return c.dispatchLocked(ctx, requestID, 0)
}

// dispatchLocked runs one broadcast round. Caller holds the per-request
// lock.
func (c *Coordinator) dispatchLocked(ctx context.Context, requestID uuid.UUID, round int) error {
	req, candidates, err := c.lifecycle.Broadcast(ctx, requestID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	excluded := make(map[uuid.UUID]struct{}, len(c.declined[requestID]))
	for id := range c.declined[requestID] {
		excluded[id] = struct{}{}
	}
	c.mu.Unlock()

	expiresAt := time.Now().Add(c.window)
	st := &broadcastState{
		offered:   make(map[uuid.UUID]struct{}, len(candidates)),
		round:     round,
		expiresAt: expiresAt,
	}

	skipped := 0
	for _, cand := range candidates {
		if _, already := excluded[cand.ID]; already {
			skipped++
			continue
		}
		offer := models.TowOffer{
			ID:                 uuid.New(),
			MsgType:            "tow_offer",
			RequestID:          req.ID,
			RequestNumber:      req.RequestNumber,
			Pickup:             req.Pickup,
			Dropoff:            req.Dropoff,
			TowType:            req.TowType.String(),
			VehicleCategory:    req.VehicleCategory.String(),
			EstimatedPrice:     req.EstimatedPrice,
			DistanceToPickupKm: cand.DistanceKm,
			ExpiresAt:          expiresAt,
		}

		if err := c.sender.SendOffer(ctx, cand.ID, offer); err != nil {
			// водитель мог отключиться, предлагаем остальным
			c.l.Debug(ctx, "failed to send offer", "driver_id", cand.ID, "error", err.Error())
			metrics.RecordDispatchOffer(serviceName, "send_failed")
			continue
		}

		st.offered[cand.ID] = struct{}{}
		metrics.RecordDispatchOffer(serviceName, "sent")
	}

	if len(st.offered) == 0 {
		if skipped > 0 {
			return c.giveUpLocked(ctx, requestID, "all drivers declined")
		}
		return c.giveUpLocked(ctx, requestID, "no reachable drivers")
	}

	// Таймер стреляет без контекста запроса, который его создал
	st.timer = time.AfterFunc(c.window, func() {
		c.onTimeout(requestID)
	})

	c.mu.Lock()
	c.active[requestID] = st
	c.mu.Unlock()

	c.l.Info(ctx, "request broadcasted",
		"candidates", len(st.offered),
		"round", round,
		"expires_at", expiresAt,
	)

	return nil
}

// ResolveAcceptance handles a driver accepting an offer. Exactly one
// acceptance per request succeeds, the rest get AlreadyAssignedError.
func (c *Coordinator) ResolveAcceptance(ctx context.Context, requestID, driverID uuid.UUID) (*models.Request, error) {
	ctx = wrap.WithAction(ctx, "resolve_acceptance")
	ctx = wrap.WithTowID(ctx, requestID.String())
	ctx = wrap.WithDriverID(ctx, driverID.String())

	unlock := c.locks.Lock(requestID)
	defer unlock()

	req, err := c.lifecycle.Apply(ctx, requestID, request.DriverAccept{DriverID: driverID})
	if err != nil {
		if errors.Is(err, &types.AlreadyAssignedError{}) {
			metrics.RecordDispatchOffer(serviceName, "lost_race")
		}
		return nil, err
	}

	c.forget(requestID)
	metrics.RecordDispatchOffer(serviceName, "accepted")

	return req, nil
}

// ResolveDecline takes the driver out of the running for this request,
// this round and every following one. When every offered driver has
// declined the round is closed early instead of waiting out the timer.
func (c *Coordinator) ResolveDecline(ctx context.Context, requestID, driverID uuid.UUID) error {
	ctx = wrap.WithAction(ctx, "resolve_decline")
	ctx = wrap.WithTowID(ctx, requestID.String())
	ctx = wrap.WithDriverID(ctx, driverID.String())

	unlock := c.locks.Lock(requestID)
	defer unlock()

	if _, err := c.lifecycle.Apply(ctx, requestID, request.DriverDecline{DriverID: driverID}); err != nil {
		return err
	}

	metrics.RecordDispatchOffer(serviceName, "declined")

	c.mu.Lock()
	set, found := c.declined[requestID]
	if !found {
		set = make(map[uuid.UUID]struct{})
		c.declined[requestID] = set
	}
	set[driverID] = struct{}{}

	st, ok := c.active[requestID]
	var allDeclined bool
	if ok {
		allDeclined = true
		for id := range st.offered {
			if _, d := set[id]; !d {
				allDeclined = false
				break
			}
		}
	}
	c.mu.Unlock()

	if ok && allDeclined {
		c.l.Info(ctx, "all candidates declined, closing round early")
		c.closeRound(requestID)
		return c.expireLocked(ctx, requestID, st.round)
	}

	return nil
}

// Cancel aborts the request and closes any open round.
func (c *Coordinator) Cancel(ctx context.Context, requestID uuid.UUID, reason string) (*models.Request, error) {
	ctx = wrap.WithTowID(ctx, requestID.String())

	unlock := c.locks.Lock(requestID)
	defer unlock()

	req, err := c.lifecycle.Apply(ctx, requestID, request.Cancel{Reason: reason})
	if err != nil {
		return nil, err
	}

	c.forget(requestID)
	return req, nil
}

// onTimeout fires when the broadcast window elapses. A request that was
// accepted or cancelled in the meantime rejects the TIMEOUT event and
// the handler becomes a no-op.
func (c *Coordinator) onTimeout(requestID uuid.UUID) {
	ctx := wrap.WithAction(context.Background(), types.ActionBroadcastTimeout)
	ctx = wrap.WithTowID(ctx, requestID.String())

	unlock := c.locks.Lock(requestID)
	defer unlock()

	c.mu.Lock()
	st, ok := c.active[requestID]
	delete(c.active, requestID)
	c.mu.Unlock()

	if !ok {
		// раунд уже закрыт принятием или отменой
		return
	}

	if err := c.expireLocked(ctx, requestID, st.round); err != nil {
		c.l.Error(ctx, "failed to handle broadcast timeout", err)
	}
}

// expireLocked runs the timeout transition and decides what happens
// next: another broadcast round while rounds remain, otherwise the
// request is cancelled. Caller holds the per-request lock.
func (c *Coordinator) expireLocked(ctx context.Context, requestID uuid.UUID, round int) error {
	_, err := c.lifecycle.Apply(ctx, requestID, request.Timeout{})
	if err != nil {
		if errors.Is(err, &types.InvalidTransitionError{}) {
			// кто-то успел принять или отменить, делать нечего
			c.l.Debug(ctx, "timeout is a no-op, request already moved on")
			return nil
		}
		return fmt.Errorf("could not mark request timed out: %w", err)
	}

	c.l.Info(ctx, "broadcast window elapsed without acceptance", "round", round)

	if round+1 >= c.maxRounds {
		return c.giveUpLocked(ctx, requestID, "no drivers accepted the request")
	}

	err = c.dispatchLocked(ctx, requestID, round+1)
	if errors.Is(err, types.ErrNoCandidateDrivers) {
		return c.giveUpLocked(ctx, requestID, "no drivers in range")
	}
	return err
}

// giveUpLocked cancels the request after dispatch exhausted its options.
func (c *Coordinator) giveUpLocked(ctx context.Context, requestID uuid.UUID, reason string) error {
	c.l.Warn(ctx, "giving up on request", "reason", reason)

	c.mu.Lock()
	delete(c.declined, requestID)
	c.mu.Unlock()

	if _, err := c.lifecycle.Apply(ctx, requestID, request.Cancel{Reason: reason}); err != nil {
		return fmt.Errorf("could not cancel undispatchable request: %w", err)
	}
	return nil
}

// closeRound stops the timer and drops the round state. Safe to call
// when no round is open. The declined set is kept so the next round
// still skips those drivers.
func (c *Coordinator) closeRound(requestID uuid.UUID) {
	c.mu.Lock()
	st, ok := c.active[requestID]
	delete(c.active, requestID)
	c.mu.Unlock()

	if ok && st.timer != nil {
		st.timer.Stop()
	}
}

// forget drops the round and the declined-driver memory once the
// request leaves dispatch for good.
func (c *Coordinator) forget(requestID uuid.UUID) {
	c.mu.Lock()
	st, ok := c.active[requestID]
	delete(c.active, requestID)
	delete(c.declined, requestID)
	c.mu.Unlock()

	if ok && st.timer != nil {
		st.timer.Stop()
	}
}

// Close stops every open round. Used on shutdown.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, st := range c.active {
		if st.timer != nil {
			st.timer.Stop()
		}
		delete(c.active, id)
	}
	clear(c.declined)
}
