package geo

import (
	"context"
	"fmt"
	"sort"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/pkg/logger"
	wrap "github.com/Dias-T/tow-dispatch-system/pkg/logger/wrapper"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
)

// DriverRepo is the persistence surface the index needs.
type DriverRepo interface {
	Register(ctx context.Context, driver *models.Driver) error
	ListAvailableWithPosition(ctx context.Context) ([]models.Driver, error)
	CountAvailableWithPosition(ctx context.Context) (int, error)
	UpsertPosition(ctx context.Context, driverID uuid.UUID, lat, lon float64) error
	SetAvailability(ctx context.Context, driverID uuid.UUID, available bool) error
}

/*
Index answers "which available drivers are within radius R of point P".
Drivers with no reported position are never returned regardless of the
availability flag.
*/
type Index struct {
	drivers DriverRepo
	l       logger.Logger
}

// New returns a new geo index over the given driver repository.
func New(drivers DriverRepo, l logger.Logger) *Index {
	return &Index{
		drivers: drivers,
		l:       l,
	}
}

// FindNearby returns available drivers within radiusKm of point, sorted
// closest-first so dispatch assigns deterministically.
func (i *Index) FindNearby(ctx context.Context, point models.Location, radiusKm float64) ([]models.DriverWithDistance, error) {
	if radiusKm < 0 {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: negative search radius %f", types.ErrInvalidArgument, radiusKm))
	}

	drivers, err := i.drivers.ListAvailableWithPosition(ctx)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to list available drivers: %w", err))
	}

	found := make([]models.DriverWithDistance, 0, len(drivers))
	for _, d := range drivers {
		if !d.HasPosition() {
			continue
		}

		dist := HaversineDistance(point.Latitude, point.Longitude, d.Position.Latitude, d.Position.Longitude)
		if dist > radiusKm {
			continue
		}

		found = append(found, models.DriverWithDistance{
			Driver:     d,
			DistanceKm: dist,
		})
	}

	sort.Slice(found, func(a, b int) bool {
		return found[a].DistanceKm < found[b].DistanceKm
	})

	return found, nil
}

// CountAvailable returns the number of available drivers with a known
// position. Feeds the demand fare modifier.
func (i *Index) CountAvailable(ctx context.Context) (int, error) {
	count, err := i.drivers.CountAvailableWithPosition(ctx)
	if err != nil {
		return 0, wrap.Error(ctx, fmt.Errorf("failed to count available drivers: %w", err))
	}
	return count, nil
}

// Register upserts the driver record. New drivers start active and
// unavailable, they come online with SetAvailability.
func (i *Index) Register(ctx context.Context, driver *models.Driver) error {
	driver.IsActive = true
	driver.IsAvailable = false

	if err := i.drivers.Register(ctx, driver); err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to register driver: %w", err))
	}

	i.l.Info(ctx, "driver registered", "driver_id", driver.ID, "tow_type", driver.TowType)
	return nil
}

// UpdateLocation upserts the driver's last reported position. Idempotent:
// repeating the same coordinates is not an error. Concurrent updates for
// one driver are last-write-wins, position is a point-in-time fact.
func (i *Index) UpdateLocation(ctx context.Context, driverID uuid.UUID, lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return wrap.Error(ctx, fmt.Errorf("%w: coordinates out of range: lat=%f lon=%f", types.ErrInvalidArgument, lat, lon))
	}

	if err := i.drivers.UpsertPosition(ctx, driverID, lat, lon); err != nil {
		return wrap.Error(ctx, err)
	}
	return nil
}

// SetAvailability toggles the driver's participation in FindNearby.
func (i *Index) SetAvailability(ctx context.Context, driverID uuid.UUID, available bool) error {
	if err := i.drivers.SetAvailability(ctx, driverID, available); err != nil {
		return wrap.Error(ctx, err)
	}

	i.l.Debug(ctx, "driver availability changed", "driver_id", driverID, "available", available)
	return nil
}
