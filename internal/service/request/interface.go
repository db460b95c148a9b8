package request

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/internal/service/fare"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
)

/*=================Request Repository======================*/

type RequestRepo interface {
	Create(ctx context.Context, req *models.Request) (*models.Request, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Request, error)

	// Update persists req only if the stored status still equals expect.
	// Returns false when the row was not updated (lost a race), the
	// caller must re-fetch and decide.
	Update(ctx context.Context, req *models.Request, expect types.RequestStatus) (bool, error)

	// HasActiveForDriver reports whether the driver is assigned to any
	// non-terminal request.
	HasActiveForDriver(ctx context.Context, driverID uuid.UUID) (bool, error)

	CountByDate(ctx context.Context, date time.Time) (int, error)

	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Request, error)
}

/*=================Driver Repository======================*/

type DriverRepo interface {
	Get(ctx context.Context, driverID uuid.UUID) (*models.Driver, error)
	SetAvailability(ctx context.Context, driverID uuid.UUID, available bool) error
	UpdateStats(ctx context.Context, driverID uuid.UUID, completedJobs int, earnings float64) error
}

/*=================Timeline Repository====================*/

type EventRepo interface {
	// AppendEvent records a lifecycle event in the request timeline.
	// Entries are appended in the order transitions are accepted, not the
	// order operations were issued.
	AppendEvent(ctx context.Context, requestID uuid.UUID, kind types.EventKind, data json.RawMessage) error

	// ListByRequest returns the recorded timeline in append order.
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.TimelineEntry, error)
}

/*=====================Fare Quoter========================*/

type FareQuoter interface {
	Quote(ctx context.Context, in fare.QuoteInput) (models.FareBreakdown, error)
}

/*===================Candidate Finder=====================*/

type CandidateFinder interface {
	FindNearby(ctx context.Context, point models.Location, radiusKm float64) ([]models.DriverWithDistance, error)
}

/*======================Notifier==========================*/

// Notifier delivers externally visible notifications. Fire-and-forget:
// the lifecycle logs failures and never propagates them.
type Notifier interface {
	Notify(ctx context.Context, msg models.NotificationMessage) error
}
