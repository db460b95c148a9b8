package fare

import (
	"context"
	"math"
	"time"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/pkg/logger"
	wrap "github.com/Dias-T/tow-dispatch-system/pkg/logger/wrapper"
	"github.com/Dias-T/tow-dispatch-system/pkg/metrics"
)

// Тарифные константы (абстрактные денежные единицы)
const (
	BaseFare       = 300.0
	TransactionFee = 30.0
	FlatbedKmRate  = 22.5
	HookKmRate     = 20.0
	BookingFeeRate = 0.08
)

// WeatherProvider looks up the weather condition at a point. Swappable
// with a deterministic stub in tests. Lookup failures are non-fatal, the
// engine falls back to the neutral modifier.
type WeatherProvider interface {
	GetConditionAt(ctx context.Context, lat, lon float64) (types.WeatherCondition, error)
}

// RequestCounter counts requests created since a point in time with one
// of the given statuses. Feeds the scarcity modifier.
type RequestCounter interface {
	CountRequestsSince(ctx context.Context, since time.Time, statuses []types.RequestStatus) (int, error)
}

// DriverCounter counts currently available drivers with a known
// position. Feeds the demand modifier.
type DriverCounter interface {
	CountAvailable(ctx context.Context) (int, error)
}

// QuoteInput are the trip parameters a fare is computed from.
type QuoteInput struct {
	TowType         types.TowType
	DistanceKm      float64
	VehicleCategory types.VehicleCategory
	Pickup          models.Location
	Dropoff         *models.Location
}

/*
Engine computes a fare breakdown from trip parameters and live
market-condition modifiers. With fixed modifier values the computation
is a pure function of its inputs (see Compute).
*/
type Engine struct {
	weather  WeatherProvider
	requests RequestCounter
	drivers  DriverCounter

	scarcityWindow time.Duration
	now            func() time.Time

	l logger.Logger
}

// New returns a fare engine with all collaborators injected.
func New(weather WeatherProvider, requests RequestCounter, drivers DriverCounter, scarcityWindow time.Duration, l logger.Logger) *Engine {
	return &Engine{
		weather:        weather,
		requests:       requests,
		drivers:        drivers,
		scarcityWindow: scarcityWindow,
		now:            time.Now,
		l:              l,
	}
}

// WithClock replaces the engine's clock. Test hook for the time-of-day modifier.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Quote resolves the live modifiers and computes the full breakdown.
func (e *Engine) Quote(ctx context.Context, in QuoteInput) (models.FareBreakdown, error) {
	ctx = wrap.WithAction(ctx, "fare_quote")

	mods, err := e.resolveModifiers(ctx, in)
	if err != nil {
		return models.FareBreakdown{}, err
	}

	breakdown, err := Compute(in, mods)
	if err != nil {
		return models.FareBreakdown{}, err
	}

	metrics.FareQuotesTotal.WithLabelValues("dispatch", in.TowType.String()).Inc()

	return breakdown, nil
}

// Compute is the pure pricing function: identical inputs and modifier
// values always produce the same breakdown. Negative distance is a
// contract violation, the engine never coerces it.
func Compute(in QuoteInput, mods models.FareModifiers) (models.FareBreakdown, error) {
	if in.DistanceKm < 0 {
		return models.FareBreakdown{}, types.ErrNegativeDistance
	}
	if !in.TowType.IsValid() {
		return models.FareBreakdown{}, types.ErrUnknownTowType
	}
	if !in.VehicleCategory.IsValid() {
		return models.FareBreakdown{}, types.ErrUnknownVehicle
	}

	baseKmRate := HookKmRate
	if in.TowType == types.TowFlatbed {
		baseKmRate = FlatbedKmRate
	}

	adjustedKmRate := baseKmRate * mods.Scarcity * mods.Weather * mods.Demand * mods.Vehicle * mods.TimeOfDay

	distanceCost := roundMoney(adjustedKmRate * in.DistanceKm)
	subtotal := BaseFare + TransactionFee + distanceCost
	bookingFee := roundMoney(subtotal * BookingFeeRate)
	total := roundMoney(subtotal + bookingFee)

	return models.FareBreakdown{
		BaseFare:       BaseFare,
		TransactionFee: TransactionFee,
		BaseKmRate:     baseKmRate,
		AdjustedKmRate: roundMoney(adjustedKmRate),
		DistanceKm:     in.DistanceKm,
		DistanceCost:   distanceCost,
		BookingFee:     bookingFee,
		TotalFare:      total,
		Modifiers:      mods,
	}, nil
}

// roundMoney rounds to 2 decimal places, half up.
func roundMoney(x float64) float64 {
	return math.Round(x*100) / 100
}
