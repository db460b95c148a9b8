package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/internal/service/request"
	"github.com/Dias-T/tow-dispatch-system/pkg/logger"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
)

/* ======================= fakes ======================= */

// fakeLifecycle mimics the transition gate with the same rejection
// semantics the real service has.
type fakeLifecycle struct {
	mu         sync.Mutex
	status     types.RequestStatus
	driverID   *uuid.UUID
	candidates []models.DriverWithDistance

	req *models.Request

	broadcasts   int
	cancelReason string
}

func newFakeLifecycle(candidates ...models.DriverWithDistance) *fakeLifecycle {
	return &fakeLifecycle{
		status:     types.StatusPending,
		candidates: candidates,
		req: &models.Request{
			ID:              uuid.New(),
			RequestNumber:   "TOW_20260829_001",
			UserID:          uuid.New(),
			TowType:         types.TowFlatbed,
			VehicleCategory: types.VehicleSedan,
			Pickup:          models.Location{Latitude: 51.1, Longitude: 71.4},
			EstimatedPrice:  648.00,
		},
	}
}

func (f *fakeLifecycle) Broadcast(_ context.Context, id uuid.UUID) (*models.Request, []models.DriverWithDistance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != types.StatusPending {
		return nil, nil, &types.InvalidTransitionError{From: f.status, Event: types.EventBroadcast}
	}
	if len(f.candidates) == 0 {
		return nil, nil, types.ErrNoCandidateDrivers
	}

	f.status = types.StatusBroadcast
	f.broadcasts++
	cp := *f.req
	return &cp, f.candidates, nil
}

func (f *fakeLifecycle) Apply(_ context.Context, id uuid.UUID, ev request.Event) (*models.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch e := ev.(type) {
	case request.DriverAccept:
		if f.status != types.StatusBroadcast {
			if f.driverID != nil {
				return nil, &types.AlreadyAssignedError{RequestID: id.String(), DriverID: f.driverID.String()}
			}
			return nil, &types.InvalidTransitionError{From: f.status, Event: ev.Kind()}
		}
		f.status = types.StatusAccepted
		d := e.DriverID
		f.driverID = &d
	case request.DriverDecline:
		if f.status != types.StatusBroadcast {
			return nil, &types.InvalidTransitionError{From: f.status, Event: ev.Kind()}
		}
	case request.Timeout:
		if f.status != types.StatusBroadcast {
			return nil, &types.InvalidTransitionError{From: f.status, Event: ev.Kind()}
		}
		f.status = types.StatusPending
	case request.Cancel:
		if f.status.IsTerminal() {
			return nil, &types.InvalidTransitionError{From: f.status, Event: ev.Kind()}
		}
		f.status = types.StatusCancelled
		f.cancelReason = e.Reason
	default:
		return nil, &types.InvalidTransitionError{From: f.status, Event: ev.Kind()}
	}

	cp := *f.req
	cp.Status = f.status
	cp.DriverID = f.driverID
	return &cp, nil
}

func (f *fakeLifecycle) snapshot() (types.RequestStatus, int, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.broadcasts, f.cancelReason
}

type fakeSender struct {
	mu     sync.Mutex
	offers []models.TowOffer
	to     []uuid.UUID
	reject map[uuid.UUID]bool
}

func (s *fakeSender) SendOffer(_ context.Context, driverID uuid.UUID, offer models.TowOffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reject[driverID] {
		return errors.New("driver not connected")
	}
	s.offers = append(s.offers, offer)
	s.to = append(s.to, driverID)
	return nil
}

func (s *fakeSender) sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.offers)
}

func (s *fakeSender) sentTo(driverID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range s.to {
		if id == driverID {
			n++
		}
	}
	return n
}

func candidate(km float64) models.DriverWithDistance {
	return models.DriverWithDistance{
		Driver:     models.Driver{ID: uuid.New(), IsAvailable: true, TowType: types.TowFlatbed},
		DistanceKm: km,
	}
}

func testLogger() logger.Logger {
	return logger.InitLogger("dispatch-test", logger.LevelError)
}

// waitFor polls until cond returns true or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", d)
}

/* ======================= tests ======================= */

func TestDispatch_SendsOfferToEveryCandidate(t *testing.T) {
	lc := newFakeLifecycle(candidate(1.0), candidate(2.5), candidate(4.2))
	sender := &fakeSender{}

	c := NewCoordinator(lc, sender, time.Minute, 1, testLogger())
	defer c.Close()

	if err := c.Dispatch(context.Background(), lc.req.ID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if sender.sent() != 3 {
		t.Fatalf("want 3 offers, got %d", sender.sent())
	}

	for _, offer := range sender.offers {
		if offer.RequestID != lc.req.ID {
			t.Fatalf("offer carries wrong request id")
		}
		if offer.MsgType != "tow_offer" {
			t.Fatalf("bad offer message type %q", offer.MsgType)
		}
		if offer.EstimatedPrice != 648.00 {
			t.Fatalf("offer must carry the estimate, got %v", offer.EstimatedPrice)
		}
	}

	status, _, _ := lc.snapshot()
	if status != types.StatusBroadcast {
		t.Fatalf("request must be BROADCAST after dispatch, got %s", status)
	}
}

func TestDispatch_NoCandidatesKeepsPending(t *testing.T) {
	lc := newFakeLifecycle() // ни одного водителя рядом
	sender := &fakeSender{}

	c := NewCoordinator(lc, sender, time.Minute, 1, testLogger())
	defer c.Close()

	err := c.Dispatch(context.Background(), lc.req.ID)
	if !errors.Is(err, types.ErrNoCandidateDrivers) {
		t.Fatalf("want ErrNoCandidateDrivers, got %v", err)
	}

	status, _, _ := lc.snapshot()
	if status != types.StatusPending {
		t.Fatalf("request must stay PENDING, got %s", status)
	}
}

func TestDispatch_UnreachableDriversAreSkipped(t *testing.T) {
	reachable := candidate(1.0)
	gone := candidate(2.0)

	lc := newFakeLifecycle(reachable, gone)
	sender := &fakeSender{reject: map[uuid.UUID]bool{gone.ID: true}}

	c := NewCoordinator(lc, sender, time.Minute, 1, testLogger())
	defer c.Close()

	if err := c.Dispatch(context.Background(), lc.req.ID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if sender.sent() != 1 || sender.to[0] != reachable.ID {
		t.Fatalf("only the reachable driver must get the offer")
	}
}

func TestResolveAcceptance_ConcurrentSingleWinner(t *testing.T) {
	cands := []models.DriverWithDistance{candidate(1), candidate(2), candidate(3), candidate(4), candidate(5)}
	lc := newFakeLifecycle(cands...)
	sender := &fakeSender{}

	c := NewCoordinator(lc, sender, time.Minute, 1, testLogger())
	defer c.Close()

	if err := c.Dispatch(context.Background(), lc.req.ID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	errs := make([]error, len(cands))
	var wg sync.WaitGroup
	for i, cand := range cands {
		wg.Add(1)
		go func(i int, driverID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = c.ResolveAcceptance(context.Background(), lc.req.ID, driverID)
		}(i, cand.ID)
	}
	wg.Wait()

	winners, losers := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, &types.AlreadyAssignedError{}):
			losers++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if winners != 1 {
		t.Fatalf("exactly one acceptance must win, got %d", winners)
	}
	if losers != len(cands)-1 {
		t.Fatalf("every other driver must lose the race, got %d", losers)
	}

	status, _, _ := lc.snapshot()
	if status != types.StatusAccepted {
		t.Fatalf("request must be ACCEPTED, got %s", status)
	}
}

func TestTimeout_CancelsWhenRoundsExhausted(t *testing.T) {
	lc := newFakeLifecycle(candidate(1.0))
	sender := &fakeSender{}

	c := NewCoordinator(lc, sender, 15*time.Millisecond, 1, testLogger())
	defer c.Close()

	if err := c.Dispatch(context.Background(), lc.req.ID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		status, _, _ := lc.snapshot()
		return status == types.StatusCancelled
	})

	_, _, reason := lc.snapshot()
	if reason == "" {
		t.Fatalf("cancellation must carry a reason")
	}
}

func TestTimeout_RebroadcastsWhileRoundsRemain(t *testing.T) {
	lc := newFakeLifecycle(candidate(1.0))
	sender := &fakeSender{}

	c := NewCoordinator(lc, sender, 15*time.Millisecond, 3, testLogger())
	defer c.Close()

	if err := c.Dispatch(context.Background(), lc.req.ID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		status, broadcasts, _ := lc.snapshot()
		return status == types.StatusCancelled && broadcasts == 3
	})
}

func TestTimeout_NoopAfterAcceptance(t *testing.T) {
	winner := candidate(1.0)
	lc := newFakeLifecycle(winner)
	sender := &fakeSender{}

	c := NewCoordinator(lc, sender, 20*time.Millisecond, 1, testLogger())
	defer c.Close()

	if err := c.Dispatch(context.Background(), lc.req.ID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if _, err := c.ResolveAcceptance(context.Background(), lc.req.ID, winner.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// даем таймеру время выстрелить
	time.Sleep(60 * time.Millisecond)

	status, broadcasts, _ := lc.snapshot()
	if status != types.StatusAccepted {
		t.Fatalf("accepted request must survive the timer, got %s", status)
	}
	if broadcasts != 1 {
		t.Fatalf("no rebroadcast after acceptance, got %d", broadcasts)
	}
}

func TestResolveDecline_AllDeclinedClosesRoundEarly(t *testing.T) {
	only := candidate(1.0)
	lc := newFakeLifecycle(only)
	sender := &fakeSender{}

	// окно длинное, отмена должна случиться сразу после отказа
	c := NewCoordinator(lc, sender, time.Hour, 1, testLogger())
	defer c.Close()

	if err := c.Dispatch(context.Background(), lc.req.ID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if err := c.ResolveDecline(context.Background(), lc.req.ID, only.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}

	status, _, reason := lc.snapshot()
	if status != types.StatusCancelled {
		t.Fatalf("request must be cancelled right after the only driver declined, got %s", status)
	}
	if reason == "" {
		t.Fatalf("cancellation must carry a reason")
	}
}

func TestResolveDecline_DriverSkippedOnNextRound(t *testing.T) {
	quitter := candidate(1.0)
	stayer := candidate(2.0)
	lc := newFakeLifecycle(quitter, stayer)
	sender := &fakeSender{}

	c := NewCoordinator(lc, sender, 15*time.Millisecond, 3, testLogger())
	defer c.Close()

	if err := c.Dispatch(context.Background(), lc.req.ID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if err := c.ResolveDecline(context.Background(), lc.req.ID, quitter.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}

	// второй водитель молчит, ждем следующий раунд
	waitFor(t, 2*time.Second, func() bool {
		_, broadcasts, _ := lc.snapshot()
		return broadcasts >= 2
	})

	if got := sender.sentTo(quitter.ID); got != 1 {
		t.Fatalf("declined driver must never see this request again, got %d offers", got)
	}
	if got := sender.sentTo(stayer.ID); got < 2 {
		t.Fatalf("remaining driver should get the rebroadcast, got %d offers", got)
	}
}

func TestResolveDecline_SoleDriverDeclineCancelsNotReoffers(t *testing.T) {
	only := candidate(1.0)
	lc := newFakeLifecycle(only)
	sender := &fakeSender{}

	// раундов с запасом, отказ единственного кандидата должен
	// завершить заявку, а не предлагать ему же снова
	c := NewCoordinator(lc, sender, time.Hour, 3, testLogger())
	defer c.Close()

	if err := c.Dispatch(context.Background(), lc.req.ID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if err := c.ResolveDecline(context.Background(), lc.req.ID, only.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}

	status, _, reason := lc.snapshot()
	if status != types.StatusCancelled {
		t.Fatalf("want CANCELLED after the only candidate declined, got %s", status)
	}
	if reason == "" {
		t.Fatalf("cancellation must carry a reason")
	}
	if got := sender.sentTo(only.ID); got != 1 {
		t.Fatalf("driver who declined got the offer %d times, want exactly 1", got)
	}
}

func TestCancel_ClosesOpenRound(t *testing.T) {
	lc := newFakeLifecycle(candidate(1.0))
	sender := &fakeSender{}

	c := NewCoordinator(lc, sender, 20*time.Millisecond, 5, testLogger())
	defer c.Close()

	if err := c.Dispatch(context.Background(), lc.req.ID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if _, err := c.Cancel(context.Background(), lc.req.ID, "user changed mind"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	status, broadcasts, reason := lc.snapshot()
	if status != types.StatusCancelled {
		t.Fatalf("status after cancel: %s", status)
	}
	if broadcasts != 1 {
		t.Fatalf("timer must not rebroadcast a cancelled request, got %d broadcasts", broadcasts)
	}
	if reason != "user changed mind" {
		t.Fatalf("wrong cancellation reason %q", reason)
	}
}
