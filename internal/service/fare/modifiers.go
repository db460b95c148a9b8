package fare

import (
	"context"
	"fmt"
	"time"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	wrap "github.com/Dias-T/tow-dispatch-system/pkg/logger/wrapper"
)

// resolveModifiers snapshots the live market conditions into a fixed
// set of multipliers. Weather failure degrades to neutral, persistence
// failures propagate.
func (e *Engine) resolveModifiers(ctx context.Context, in QuoteInput) (models.FareModifiers, error) {
	mods := models.NeutralModifiers()

	scarcity, err := e.scarcityModifier(ctx)
	if err != nil {
		return mods, wrap.Error(ctx, fmt.Errorf("failed to resolve scarcity modifier: %w", err))
	}
	mods.Scarcity = scarcity

	mods.Weather = e.weatherModifier(ctx, in.Pickup)

	demand, err := e.demandModifier(ctx)
	if err != nil {
		return mods, wrap.Error(ctx, fmt.Errorf("failed to resolve demand modifier: %w", err))
	}
	mods.Demand = demand

	mods.Vehicle = vehicleModifier(in.VehicleCategory)
	mods.TimeOfDay = timeOfDayModifier(e.now())

	return mods, nil
}

// scarcityModifier prices in how many active requests compete for driver
// capacity: few active requests means a looser market and a promotional
// bump to attract drivers.
func (e *Engine) scarcityModifier(ctx context.Context) (float64, error) {
	since := e.now().Add(-e.scarcityWindow)

	active, err := e.requests.CountRequestsSince(ctx, since, types.ActiveStatuses)
	if err != nil {
		return 0, err
	}

	switch {
	case active <= 2:
		return 1.25, nil
	case active <= 5:
		return 1.15, nil
	default:
		return 1.0, nil
	}
}

// weatherModifier bumps the rate in adverse conditions. A failed or
// timed-out lookup falls back to the neutral modifier, never fails the quote.
func (e *Engine) weatherModifier(ctx context.Context, pickup models.Location) float64 {
	condition, err := e.weather.GetConditionAt(ctx, pickup.Latitude, pickup.Longitude)
	if err != nil {
		e.l.Warn(ctx, "weather lookup failed, using neutral modifier", "error", err.Error())
		return 1.0
	}

	if condition.IsAdverse() {
		return 1.15
	}
	return 1.0
}

// demandModifier bumps the rate when driver supply is thin.
func (e *Engine) demandModifier(ctx context.Context) (float64, error) {
	available, err := e.drivers.CountAvailable(ctx)
	if err != nil {
		return 0, err
	}

	if available < 3 {
		return 1.10, nil
	}
	return 1.0, nil
}

// vehicleModifier prices heavier vehicle categories.
func vehicleModifier(category types.VehicleCategory) float64 {
	switch category {
	case types.VehicleSUV, types.VehicleBakkie, types.VehicleVan:
		return 1.2
	default:
		return 1.0
	}
}

// timeOfDayModifier brackets: inclusive of the start hour, exclusive of
// the next bracket's start hour.
//
//	06:00–18:59 → 1.0
//	19:00–21:59 → 1.1
//	22:00–04:59 → 1.25
//	05:00–05:59 → 1.15
func timeOfDayModifier(now time.Time) float64 {
	switch hour := now.Hour(); {
	case hour >= 6 && hour < 19:
		return 1.0
	case hour >= 19 && hour < 22:
		return 1.1
	case hour >= 22 || hour < 5:
		return 1.25
	default: // 05:00–05:59
		return 1.15
	}
}
