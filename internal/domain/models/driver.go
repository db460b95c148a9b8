package models

import (
	"time"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
)

// Driver is a tow truck operator. Position is nil until the driver
// reports coordinates for the first time. Drivers are never deleted,
// only deactivated.
type Driver struct {
	ID          uuid.UUID
	Name        string
	TowType     types.TowType
	IsAvailable bool
	IsActive    bool

	// Last reported position, nil until first report
	Position *Location

	Rating        float64
	CompletedJobs int

	CreatedAt  time.Time
	LocatedAt  *time.Time
	ModifiedAt time.Time
}

// HasPosition reports whether the driver has ever reported coordinates.
func (d *Driver) HasPosition() bool {
	return d.Position != nil
}

// DriverWithDistance pairs a driver with the haversine distance (km)
// from a query point. Produced by the geo index for dispatch.
type DriverWithDistance struct {
	Driver
	DistanceKm float64
}
