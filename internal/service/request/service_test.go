package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/internal/service/fare"
	"github.com/Dias-T/tow-dispatch-system/pkg/logger"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
)

/* ======================= fakes ======================= */

type txStub struct{}

func (txStub) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRequestRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]models.Request
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{rows: make(map[uuid.UUID]models.Request)}
}

func (r *fakeRequestRepo) Create(_ context.Context, req *models.Request) (*models.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[req.ID] = *req
	cp := *req
	return &cp, nil
}

func (r *fakeRequestRepo) Get(_ context.Context, id uuid.UUID) (*models.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, types.ErrRequestNotFound
	}
	cp := row
	return &cp, nil
}

func (r *fakeRequestRepo) Update(_ context.Context, req *models.Request, expect types.RequestStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[req.ID]
	if !ok {
		return false, types.ErrRequestNotFound
	}
	if row.Status != expect {
		return false, nil
	}
	r.rows[req.ID] = *req
	return true, nil
}

func (r *fakeRequestRepo) HasActiveForDriver(_ context.Context, driverID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.DriverID != nil && *row.DriverID == driverID && !row.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRequestRepo) CountByDate(_ context.Context, _ time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows), nil
}

func (r *fakeRequestRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, _ int) ([]models.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Request
	for _, row := range r.rows {
		if row.UserID == userID && len(out) < limit {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeDriverRepo struct {
	mu        sync.Mutex
	available map[uuid.UUID]bool
	jobs      map[uuid.UUID]int
	earnings  map[uuid.UUID]float64
}

func newFakeDriverRepo() *fakeDriverRepo {
	return &fakeDriverRepo{
		available: make(map[uuid.UUID]bool),
		jobs:      make(map[uuid.UUID]int),
		earnings:  make(map[uuid.UUID]float64),
	}
}

func (r *fakeDriverRepo) Get(_ context.Context, id uuid.UUID) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	avail, ok := r.available[id]
	if !ok {
		return nil, types.ErrDriverNotFound
	}
	return &models.Driver{ID: id, IsAvailable: avail}, nil
}

func (r *fakeDriverRepo) SetAvailability(_ context.Context, id uuid.UUID, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.available[id] = available
	return nil
}

func (r *fakeDriverRepo) UpdateStats(_ context.Context, id uuid.UUID, completedJobs int, earnings float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id] += completedJobs
	r.earnings[id] += earnings
	return nil
}

type timelineEntry struct {
	requestID uuid.UUID
	kind      types.EventKind
	data      json.RawMessage
}

type fakeTimeline struct {
	mu      sync.Mutex
	entries []timelineEntry
}

func (tl *fakeTimeline) AppendEvent(_ context.Context, requestID uuid.UUID, kind types.EventKind, data json.RawMessage) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.entries = append(tl.entries, timelineEntry{requestID: requestID, kind: kind, data: data})
	return nil
}

func (tl *fakeTimeline) ListByRequest(_ context.Context, requestID uuid.UUID) ([]models.TimelineEntry, error) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	var out []models.TimelineEntry
	for i, e := range tl.entries {
		if e.requestID == requestID {
			out = append(out, models.TimelineEntry{Seq: int64(i + 1), EventType: e.kind.String(), EventData: e.data})
		}
	}
	return out, nil
}

func (tl *fakeTimeline) kinds(requestID uuid.UUID) []types.EventKind {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	var out []types.EventKind
	for _, e := range tl.entries {
		if e.requestID == requestID {
			out = append(out, e.kind)
		}
	}
	return out
}

type fakeQuoter struct {
	total float64
	err   error
}

func (q fakeQuoter) Quote(_ context.Context, _ fare.QuoteInput) (models.FareBreakdown, error) {
	if q.err != nil {
		return models.FareBreakdown{}, q.err
	}
	return models.FareBreakdown{TotalFare: q.total}, nil
}

type fakeFinder struct {
	drivers []models.DriverWithDistance
}

func (f fakeFinder) FindNearby(_ context.Context, _ models.Location, _ float64) ([]models.DriverWithDistance, error) {
	return f.drivers, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []models.NotificationMessage
	fail bool
}

func (n *fakeNotifier) Notify(_ context.Context, msg models.NotificationMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("broker unavailable")
	}
	n.sent = append(n.sent, msg)
	return nil
}

/* ======================= helpers ======================= */

func newTestLifecycle(t *testing.T) (*Lifecycle, *fakeRequestRepo, *fakeDriverRepo, *fakeTimeline, *fakeNotifier, fakeFinder) {
	t.Helper()

	drv := models.DriverWithDistance{
		Driver:     models.Driver{ID: uuid.New(), Name: "Aibek", TowType: types.TowFlatbed, IsAvailable: true},
		DistanceKm: 1.2,
	}

	requests := newFakeRequestRepo()
	drivers := newFakeDriverRepo()
	timeline := &fakeTimeline{}
	notifier := &fakeNotifier{}
	finder := fakeFinder{drivers: []models.DriverWithDistance{drv}}

	l := logger.InitLogger("dispatch-test", logger.LevelError)
	svc := NewLifecycle(requests, drivers, timeline, fakeQuoter{total: 648.00}, finder, notifier, 10, txStub{}, l)

	return svc, requests, drivers, timeline, notifier, finder
}

func createPending(t *testing.T, svc *Lifecycle) *models.Request {
	t.Helper()

	req, err := svc.Create(context.Background(), CreateInput{
		UserID:          uuid.New(),
		TowType:         types.TowFlatbed,
		VehicleCategory: types.VehicleSedan,
		Pickup:          models.Location{Latitude: 51.1282, Longitude: 71.4304},
		Dropoff:         &models.Location{Latitude: 51.1605, Longitude: 71.4704},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return req
}

func acceptDriver(t *testing.T, svc *Lifecycle, reqID uuid.UUID, finder fakeFinder) uuid.UUID {
	t.Helper()

	if _, _, err := svc.Broadcast(context.Background(), reqID); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	driverID := finder.drivers[0].ID
	if _, err := svc.Apply(context.Background(), reqID, DriverAccept{DriverID: driverID}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	return driverID
}

/* ======================= tests ======================= */

func TestCreate_SetsNumberStatusAndEstimate(t *testing.T) {
	svc, _, _, timeline, _, _ := newTestLifecycle(t)

	req := createPending(t, svc)

	if req.Status != types.StatusPending {
		t.Fatalf("new request must be PENDING, got %s", req.Status)
	}
	if req.EstimatedPrice != 648.00 {
		t.Fatalf("estimate not taken from quote: %v", req.EstimatedPrice)
	}

	wantPrefix := "TOW_" + time.Now().Format("20060102") + "_"
	if !strings.HasPrefix(req.RequestNumber, wantPrefix) {
		t.Fatalf("bad request number %q, want prefix %q", req.RequestNumber, wantPrefix)
	}

	kinds := timeline.kinds(req.ID)
	if len(kinds) != 1 || kinds[0] != types.EventCreate {
		t.Fatalf("timeline after create: %v", kinds)
	}
}

func TestBroadcast_NoCandidatesLeavesPending(t *testing.T) {
	svc, requests, _, _, _, _ := newTestLifecycle(t)
	svc.finder = fakeFinder{} // пустой список кандидатов

	req := createPending(t, svc)

	_, _, err := svc.Broadcast(context.Background(), req.ID)
	if !errors.Is(err, types.ErrNoCandidateDrivers) {
		t.Fatalf("want ErrNoCandidateDrivers, got %v", err)
	}

	stored, _ := requests.Get(context.Background(), req.ID)
	if stored.Status != types.StatusPending {
		t.Fatalf("status must stay PENDING, got %s", stored.Status)
	}
}

func TestAccept_SecondDriverGetsAlreadyAssigned(t *testing.T) {
	svc, _, drivers, _, _, finder := newTestLifecycle(t)

	req := createPending(t, svc)
	winner := acceptDriver(t, svc, req.ID, finder)

	loser := uuid.New()
	drivers.available[loser] = true

	_, err := svc.Apply(context.Background(), req.ID, DriverAccept{DriverID: loser})

	var assigned *types.AlreadyAssignedError
	if !errors.As(err, &assigned) {
		t.Fatalf("want AlreadyAssignedError, got %v", err)
	}
	if assigned.DriverID != winner.String() {
		t.Fatalf("error must name the winner %s, got %s", winner, assigned.DriverID)
	}

	if drivers.available[winner] {
		t.Fatalf("winner must be marked busy")
	}
}

func TestAccept_ConcurrentSingleWinner(t *testing.T) {
	svc, requests, drivers, _, _, _ := newTestLifecycle(t)

	req := createPending(t, svc)
	if _, _, err := svc.Broadcast(context.Background(), req.ID); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	const n = 8
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
		drivers.available[ids[i]] = true
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Apply(context.Background(), req.ID, DriverAccept{DriverID: ids[i]})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, &types.AlreadyAssignedError{}):
		default:
			t.Fatalf("unexpected loser error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("exactly one driver must win, got %d", winners)
	}

	stored, _ := requests.Get(context.Background(), req.ID)
	if stored.Status != types.StatusAccepted || stored.DriverID == nil {
		t.Fatalf("request not assigned after race: %+v", stored)
	}
}

func TestAccept_DriverOnActiveTowRejected(t *testing.T) {
	svc, _, _, _, _, finder := newTestLifecycle(t)

	first := createPending(t, svc)
	driverID := acceptDriver(t, svc, first.ID, finder)

	second := createPending(t, svc)
	if _, _, err := svc.Broadcast(context.Background(), second.ID); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	_, err := svc.Apply(context.Background(), second.ID, DriverAccept{DriverID: driverID})
	if !errors.Is(err, types.ErrDriverOnActiveTow) {
		t.Fatalf("want ErrDriverOnActiveTow, got %v", err)
	}
}

func TestProgress_OnlyAssignedDriver(t *testing.T) {
	svc, _, _, _, _, finder := newTestLifecycle(t)

	req := createPending(t, svc)
	acceptDriver(t, svc, req.ID, finder)

	stranger := uuid.New()
	_, err := svc.Apply(context.Background(), req.ID, DriverArrived{DriverID: stranger})
	if !errors.Is(err, types.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument for unassigned driver, got %v", err)
	}
}

func TestComplete_FreezesPriceAndFreesDriver(t *testing.T) {
	svc, requests, drivers, _, _, finder := newTestLifecycle(t)

	req := createPending(t, svc)
	driverID := acceptDriver(t, svc, req.ID, finder)

	ctx := context.Background()
	for _, ev := range []Event{
		DriverArrived{DriverID: driverID},
		StartTransit{DriverID: driverID},
		DestinationReached{DriverID: driverID},
	} {
		if _, err := svc.Apply(ctx, req.ID, ev); err != nil {
			t.Fatalf("event %s: %v", ev.Kind(), err)
		}
	}

	done, err := svc.Apply(ctx, req.ID, Complete{
		DriverID:    driverID,
		ActualPrice: 700.50,
		Artifacts:   models.CompletionArtifacts{RecipientName: "Dana", InvoiceRef: "inv-42"},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if done.Status != types.StatusCompleted {
		t.Fatalf("status after complete: %s", done.Status)
	}
	if done.ActualPrice == nil || *done.ActualPrice != 700.50 {
		t.Fatalf("actual price not frozen: %v", done.ActualPrice)
	}
	if done.EstimatedPrice != 648.00 {
		t.Fatalf("estimate must be untouched by completion: %v", done.EstimatedPrice)
	}

	if !drivers.available[driverID] {
		t.Fatalf("driver must be freed after completion")
	}
	if drivers.jobs[driverID] != 1 || drivers.earnings[driverID] != 700.50 {
		t.Fatalf("driver stats not updated: jobs=%d earnings=%v", drivers.jobs[driverID], drivers.earnings[driverID])
	}

	// терминальное состояние, никакие события больше не проходят
	_, err = svc.Apply(ctx, req.ID, Cancel{Reason: "too late"})
	if !errors.Is(err, &types.InvalidTransitionError{}) {
		t.Fatalf("cancel after complete must be rejected, got %v", err)
	}

	stored, _ := requests.Get(ctx, req.ID)
	if stored.Status != types.StatusCompleted {
		t.Fatalf("rejected event must not touch stored status, got %s", stored.Status)
	}
}

func TestCancel_FreesAssignedDriverAndNotifiesBoth(t *testing.T) {
	svc, _, drivers, _, notifier, finder := newTestLifecycle(t)

	req := createPending(t, svc)
	driverID := acceptDriver(t, svc, req.ID, finder)

	cancelled, err := svc.Apply(context.Background(), req.ID, Cancel{Reason: "changed my mind"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if cancelled.Status != types.StatusCancelled {
		t.Fatalf("status after cancel: %s", cancelled.Status)
	}
	if cancelled.CancellationReason == nil || *cancelled.CancellationReason != "changed my mind" {
		t.Fatalf("reason not stored: %v", cancelled.CancellationReason)
	}
	if !drivers.available[driverID] {
		t.Fatalf("driver must be freed on cancel")
	}

	toDriver := 0
	for _, msg := range notifier.sent {
		if msg.EventType == types.NotifyRequestCancelled && msg.RecipientID == driverID {
			toDriver++
		}
	}
	if toDriver != 1 {
		t.Fatalf("assigned driver must be notified about the cancel, got %d messages", toDriver)
	}
}

func TestTimeout_NoopAfterAcceptance(t *testing.T) {
	svc, requests, _, _, _, finder := newTestLifecycle(t)

	req := createPending(t, svc)
	acceptDriver(t, svc, req.ID, finder)

	_, err := svc.Apply(context.Background(), req.ID, Timeout{})
	if !errors.Is(err, &types.InvalidTransitionError{}) {
		t.Fatalf("timeout after acceptance must be rejected, got %v", err)
	}

	stored, _ := requests.Get(context.Background(), req.ID)
	if stored.Status != types.StatusAccepted {
		t.Fatalf("timeout must not move an accepted request, got %s", stored.Status)
	}
}

func TestTimeout_ReturnsBroadcastToPending(t *testing.T) {
	svc, requests, _, timeline, _, _ := newTestLifecycle(t)

	req := createPending(t, svc)
	if _, _, err := svc.Broadcast(context.Background(), req.ID); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	if _, err := svc.Apply(context.Background(), req.ID, Timeout{}); err != nil {
		t.Fatalf("timeout: %v", err)
	}

	stored, _ := requests.Get(context.Background(), req.ID)
	if stored.Status != types.StatusPending {
		t.Fatalf("status after timeout: %s", stored.Status)
	}

	kinds := timeline.kinds(req.ID)
	if kinds[len(kinds)-1] != types.EventTimeout {
		t.Fatalf("timeline must record the timeout, got %v", kinds)
	}
}

func TestDecline_KeepsStatusRecordsTimeline(t *testing.T) {
	svc, requests, _, timeline, _, finder := newTestLifecycle(t)

	req := createPending(t, svc)
	if _, _, err := svc.Broadcast(context.Background(), req.ID); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	if _, err := svc.Apply(context.Background(), req.ID, DriverDecline{DriverID: finder.drivers[0].ID}); err != nil {
		t.Fatalf("decline: %v", err)
	}

	stored, _ := requests.Get(context.Background(), req.ID)
	if stored.Status != types.StatusBroadcast {
		t.Fatalf("decline must not change status, got %s", stored.Status)
	}

	kinds := timeline.kinds(req.ID)
	if kinds[len(kinds)-1] != types.EventDriverDecline {
		t.Fatalf("timeline must record the decline, got %v", kinds)
	}
}

func TestNotifierFailureDoesNotFailTransition(t *testing.T) {
	svc, requests, _, _, notifier, _ := newTestLifecycle(t)
	notifier.fail = true

	req := createPending(t, svc)
	if _, _, err := svc.Broadcast(context.Background(), req.ID); err != nil {
		t.Fatalf("broadcast must survive notifier failure: %v", err)
	}

	stored, _ := requests.Get(context.Background(), req.ID)
	if stored.Status != types.StatusBroadcast {
		t.Fatalf("transition must be committed regardless, got %s", stored.Status)
	}
}

func TestAdminOverride_GoesThroughTheSameGate(t *testing.T) {
	svc, _, _, _, _, _ := newTestLifecycle(t)

	req := createPending(t, svc)

	// Запрещенный переход остается запрещенным и для админа
	_, err := svc.Apply(context.Background(), req.ID, AdminOverride{
		AdminID: uuid.New(),
		Wrapped: Complete{DriverID: uuid.New(), ActualPrice: 100},
	})
	if !errors.Is(err, types.ErrInvalidArgument) && !errors.Is(err, &types.InvalidTransitionError{}) {
		t.Fatalf("admin override must respect the gate, got %v", err)
	}

	// Разрешенный переход проходит
	res, err := svc.Apply(context.Background(), req.ID, AdminOverride{
		AdminID: uuid.New(),
		Wrapped: Cancel{Reason: "fraud check"},
	})
	if err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
	if res.Status != types.StatusCancelled {
		t.Fatalf("status after admin cancel: %s", res.Status)
	}
}

func TestCreate_UnknownTowTypeRejected(t *testing.T) {
	svc, _, _, _, _, _ := newTestLifecycle(t)

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:          uuid.New(),
		TowType:         types.TowType("TRACTOR"),
		VehicleCategory: types.VehicleSedan,
		Pickup:          models.Location{Latitude: 51.1, Longitude: 71.4},
	})
	if !errors.Is(err, types.ErrUnknownTowType) {
		t.Fatalf("want ErrUnknownTowType, got %v", err)
	}
}

func TestCreate_QuoteFailurePropagates(t *testing.T) {
	svc, _, _, _, _, _ := newTestLifecycle(t)
	svc.fares = fakeQuoter{err: fmt.Errorf("pricing backend down")}

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:          uuid.New(),
		TowType:         types.TowHook,
		VehicleCategory: types.VehicleSUV,
		Pickup:          models.Location{Latitude: 51.1, Longitude: 71.4},
	})
	if err == nil {
		t.Fatalf("quote failure must fail creation")
	}
}
