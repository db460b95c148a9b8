package geo

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/pkg/logger"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
)

type fakeDriverRepo struct {
	mu      sync.Mutex
	drivers map[uuid.UUID]*models.Driver
}

func newFakeDriverRepo() *fakeDriverRepo {
	return &fakeDriverRepo{drivers: make(map[uuid.UUID]*models.Driver)}
}

func (r *fakeDriverRepo) add(d models.Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := d
	r.drivers[d.ID] = &cp
}

func (r *fakeDriverRepo) Register(_ context.Context, d *models.Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.drivers[d.ID] = &cp
	return nil
}

func (r *fakeDriverRepo) ListAvailableWithPosition(_ context.Context) ([]models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Driver
	for _, d := range r.drivers {
		if d.IsAvailable && d.Position != nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *fakeDriverRepo) CountAvailableWithPosition(ctx context.Context) (int, error) {
	list, _ := r.ListAvailableWithPosition(ctx)
	return len(list), nil
}

func (r *fakeDriverRepo) UpsertPosition(_ context.Context, driverID uuid.UUID, lat, lon float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[driverID]
	if !ok {
		return types.ErrDriverNotFound
	}
	d.Position = &models.Location{Latitude: lat, Longitude: lon}
	return nil
}

func (r *fakeDriverRepo) SetAvailability(_ context.Context, driverID uuid.UUID, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[driverID]
	if !ok {
		return types.ErrDriverNotFound
	}
	d.IsAvailable = available
	return nil
}

func driverAt(lat, lon float64, available bool) models.Driver {
	return models.Driver{
		ID:          uuid.New(),
		TowType:     types.TowFlatbed,
		IsAvailable: available,
		IsActive:    true,
		Position:    &models.Location{Latitude: lat, Longitude: lon},
	}
}

func newTestIndex(t *testing.T) (*Index, *fakeDriverRepo) {
	t.Helper()
	repo := newFakeDriverRepo()
	return New(repo, logger.InitLogger("geo-test", logger.LevelError)), repo
}

func TestFindNearby_SortedClosestFirst(t *testing.T) {
	idx, repo := newTestIndex(t)

	far := driverAt(51.20, 71.43, true)
	near := driverAt(51.13, 71.43, true)
	mid := driverAt(51.16, 71.43, true)
	repo.add(far)
	repo.add(near)
	repo.add(mid)

	found, err := idx.FindNearby(context.Background(), models.Location{Latitude: 51.1282, Longitude: 71.4304}, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 3 {
		t.Fatalf("want 3 drivers, got %d", len(found))
	}

	wantOrder := []uuid.UUID{near.ID, mid.ID, far.ID}
	for i, want := range wantOrder {
		if found[i].ID != want {
			t.Fatalf("position %d: wrong driver, distances %v", i, []float64{found[0].DistanceKm, found[1].DistanceKm, found[2].DistanceKm})
		}
	}
}

func TestFindNearby_RadiusFilters(t *testing.T) {
	idx, repo := newTestIndex(t)

	inside := driverAt(51.14, 71.43, true) // ~1.3 км от точки поиска
	outside := driverAt(51.50, 71.43, true)
	repo.add(inside)
	repo.add(outside)

	found, err := idx.FindNearby(context.Background(), models.Location{Latitude: 51.1282, Longitude: 71.4304}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 1 || found[0].ID != inside.ID {
		t.Fatalf("only the driver inside the radius must match, got %d", len(found))
	}
}

func TestFindNearby_CoincidentPointMatchesAnyRadius(t *testing.T) {
	idx, repo := newTestIndex(t)

	point := models.Location{Latitude: 51.1282, Longitude: 71.4304}
	atPoint := driverAt(point.Latitude, point.Longitude, true)
	repo.add(atPoint)

	// нулевой радиус тоже должен находить водителя в самой точке
	found, err := idx.FindNearby(context.Background(), point, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("driver at the exact point must match radius 0, got %d", len(found))
	}
	if found[0].DistanceKm != 0 {
		t.Fatalf("distance to coincident driver must be 0, got %f", found[0].DistanceKm)
	}
}

func TestFindNearby_SkipsUnavailableAndPositionless(t *testing.T) {
	idx, repo := newTestIndex(t)

	available := driverAt(51.13, 71.43, true)
	busy := driverAt(51.13, 71.43, false)
	noFix := models.Driver{ID: uuid.New(), TowType: types.TowHook, IsAvailable: true}
	repo.add(available)
	repo.add(busy)
	repo.add(noFix)

	found, err := idx.FindNearby(context.Background(), models.Location{Latitude: 51.1282, Longitude: 71.4304}, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 1 || found[0].ID != available.ID {
		t.Fatalf("busy and positionless drivers must never match, got %d", len(found))
	}
}

func TestFindNearby_NegativeRadiusRejected(t *testing.T) {
	idx, _ := newTestIndex(t)

	_, err := idx.FindNearby(context.Background(), models.Location{}, -1)
	if err == nil {
		t.Fatalf("negative radius must be rejected")
	}
	if !errors.Is(err, types.ErrInvalidArgument) {
		t.Fatalf("negative radius must classify as invalid argument, got %v", err)
	}
}

func TestRegister_StartsActiveAndUnavailable(t *testing.T) {
	idx, repo := newTestIndex(t)

	d := &models.Driver{ID: uuid.New(), Name: "Bekzat", TowType: "FLATBED", IsAvailable: true}
	if err := idx.Register(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, ok := repo.drivers[d.ID]
	if !ok {
		t.Fatal("driver was not stored")
	}
	if !stored.IsActive {
		t.Error("registered driver must be active")
	}
	if stored.IsAvailable {
		t.Error("registered driver must start unavailable")
	}
}

func TestUpdateLocation_IdempotentAndLastWriteWins(t *testing.T) {
	idx, repo := newTestIndex(t)

	d := driverAt(51.13, 71.43, true)
	repo.add(d)
	ctx := context.Background()

	// повтор тех же координат не ошибка
	if err := idx.UpdateLocation(ctx, d.ID, 51.15, 71.45); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if err := idx.UpdateLocation(ctx, d.ID, 51.15, 71.45); err != nil {
		t.Fatalf("repeated update must be idempotent: %v", err)
	}

	if err := idx.UpdateLocation(ctx, d.ID, 51.20, 71.50); err != nil {
		t.Fatalf("second update: %v", err)
	}

	repo.mu.Lock()
	pos := repo.drivers[d.ID].Position
	repo.mu.Unlock()
	if pos.Latitude != 51.20 || pos.Longitude != 71.50 {
		t.Fatalf("last write must win, got %+v", pos)
	}
}

func TestUpdateLocation_OutOfRangeRejected(t *testing.T) {
	idx, repo := newTestIndex(t)

	d := driverAt(51.13, 71.43, true)
	repo.add(d)

	cases := []struct{ lat, lon float64 }{
		{91, 0},
		{-91, 0},
		{0, 181},
		{0, -181},
	}
	for _, tc := range cases {
		err := idx.UpdateLocation(context.Background(), d.ID, tc.lat, tc.lon)
		if err == nil {
			t.Fatalf("coordinates lat=%f lon=%f must be rejected", tc.lat, tc.lon)
		}
		if !errors.Is(err, types.ErrInvalidArgument) {
			t.Fatalf("out-of-range coordinates must classify as invalid argument, got %v", err)
		}
	}
}

func TestSetAvailability_TogglesMatching(t *testing.T) {
	idx, repo := newTestIndex(t)

	d := driverAt(51.13, 71.43, true)
	repo.add(d)
	ctx := context.Background()
	point := models.Location{Latitude: 51.1282, Longitude: 71.4304}

	if err := idx.SetAvailability(ctx, d.ID, false); err != nil {
		t.Fatalf("set availability: %v", err)
	}
	found, _ := idx.FindNearby(ctx, point, 50)
	if len(found) != 0 {
		t.Fatalf("offline driver must not match")
	}

	if err := idx.SetAvailability(ctx, d.ID, true); err != nil {
		t.Fatalf("set availability: %v", err)
	}
	found, _ = idx.FindNearby(ctx, point, 50)
	if len(found) != 1 {
		t.Fatalf("driver must match again after going online")
	}
}
