package fare

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/pkg/logger"
)

/* ======================= fakes ======================= */

type stubWeather struct {
	condition types.WeatherCondition
	err       error
}

func (s stubWeather) GetConditionAt(_ context.Context, _, _ float64) (types.WeatherCondition, error) {
	return s.condition, s.err
}

type stubRequests struct {
	active int
	err    error
}

func (s stubRequests) CountRequestsSince(_ context.Context, _ time.Time, _ []types.RequestStatus) (int, error) {
	return s.active, s.err
}

type stubDrivers struct {
	available int
	err       error
}

func (s stubDrivers) CountAvailable(_ context.Context) (int, error) {
	return s.available, s.err
}

// neutralEngine returns an engine whose every live modifier resolves to 1.0:
// clear weather, busy market, plenty of drivers, midday clock.
func neutralEngine() *Engine {
	e := New(
		stubWeather{condition: types.WeatherClear},
		stubRequests{active: 10},
		stubDrivers{available: 10},
		30*time.Minute,
		logger.InitLogger("fare-test", logger.LevelError),
	)
	return e.WithClock(func() time.Time {
		return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	})
}

func neutralInput(towType types.TowType, km float64) QuoteInput {
	return QuoteInput{
		TowType:         towType,
		DistanceKm:      km,
		VehicleCategory: types.VehicleSedan,
		Pickup:          models.Location{Latitude: 51.1282, Longitude: 71.4304},
	}
}

/* ======================= Compute ======================= */

func TestCompute_FlatbedNeutral(t *testing.T) {
	got, err := Compute(neutralInput(types.TowFlatbed, 12), models.NeutralModifiers())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 300 + 30 + 22.5*12 = 600, сбор 8% = 48
	if got.DistanceCost != 270.00 {
		t.Fatalf("distance cost: got %v want 270.00", got.DistanceCost)
	}
	if got.BookingFee != 48.00 {
		t.Fatalf("booking fee: got %v want 48.00", got.BookingFee)
	}
	if got.TotalFare != 648.00 {
		t.Fatalf("total: got %v want 648.00", got.TotalFare)
	}
}

func TestCompute_HookNeutral(t *testing.T) {
	got, err := Compute(neutralInput(types.TowHook, 10), models.NeutralModifiers())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 300 + 30 + 20*10 = 530, сбор 8% = 42.40
	if got.BaseKmRate != HookKmRate {
		t.Fatalf("base rate: got %v want %v", got.BaseKmRate, HookKmRate)
	}
	if got.TotalFare != 572.40 {
		t.Fatalf("total: got %v want 572.40", got.TotalFare)
	}
}

func TestCompute_VehicleModifierSUV(t *testing.T) {
	mods := models.NeutralModifiers()
	mods.Vehicle = 1.2

	in := neutralInput(types.TowFlatbed, 12)
	in.VehicleCategory = types.VehicleSUV

	got, err := Compute(in, mods)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 22.5*1.2 = 27, 27*12 = 324, субтотал 654, сбор 52.32
	if got.AdjustedKmRate != 27.00 {
		t.Fatalf("adjusted rate: got %v want 27.00", got.AdjustedKmRate)
	}
	if got.TotalFare != 706.32 {
		t.Fatalf("total: got %v want 706.32", got.TotalFare)
	}
}

func TestCompute_ZeroDistance(t *testing.T) {
	got, err := Compute(neutralInput(types.TowFlatbed, 0), models.NeutralModifiers())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// только базовая подача и сборы
	if got.DistanceCost != 0 {
		t.Fatalf("distance cost for zero km: %v", got.DistanceCost)
	}
	if got.TotalFare != 356.40 {
		t.Fatalf("total: got %v want 356.40", got.TotalFare)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	in := neutralInput(types.TowFlatbed, 7.3)
	mods := models.FareModifiers{Scarcity: 1.15, Weather: 1.15, Demand: 1.1, Vehicle: 1.2, TimeOfDay: 1.25}

	first, err := Compute(in, mods)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Compute(in, mods)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("same inputs must produce the same breakdown:\n%+v\n%+v", first, second)
	}
}

func TestCompute_RoundsHalfUp(t *testing.T) {
	// 22.5 * 0.027 = 0.6075, половина копейки округляется вверх
	got, err := Compute(neutralInput(types.TowFlatbed, 0.027), models.NeutralModifiers())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DistanceCost != 0.61 {
		t.Fatalf("distance cost: got %v want 0.61", got.DistanceCost)
	}
}

func TestCompute_InvalidInputs(t *testing.T) {
	cases := []struct {
		name string
		in   QuoteInput
		want error
	}{
		{"negative distance", neutralInput(types.TowFlatbed, -1), types.ErrNegativeDistance},
		{"unknown tow type", QuoteInput{TowType: "TRACTOR", DistanceKm: 1, VehicleCategory: types.VehicleSedan}, types.ErrUnknownTowType},
		{"unknown vehicle", QuoteInput{TowType: types.TowHook, DistanceKm: 1, VehicleCategory: "TANK"}, types.ErrUnknownVehicle},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compute(tc.in, models.NeutralModifiers())
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
			if !errors.Is(err, types.ErrInvalidArgument) {
				t.Fatalf("validation errors must wrap ErrInvalidArgument, got %v", err)
			}
		})
	}
}

/* ======================= modifiers ======================= */

func TestTimeOfDayBrackets(t *testing.T) {
	cases := []struct {
		hour int
		want float64
	}{
		{6, 1.0}, {12, 1.0}, {18, 1.0},
		{19, 1.1}, {21, 1.1},
		{22, 1.25}, {23, 1.25}, {0, 1.25}, {4, 1.25},
		{5, 1.15},
	}

	for _, tc := range cases {
		now := time.Date(2026, 8, 29, tc.hour, 30, 0, 0, time.UTC)
		if got := timeOfDayModifier(now); got != tc.want {
			t.Fatalf("hour %d: got %v want %v", tc.hour, got, tc.want)
		}
	}
}

func TestQuote_ScarcityBrackets(t *testing.T) {
	cases := []struct {
		active int
		want   float64
	}{
		{0, 1.25}, {2, 1.25},
		{3, 1.15}, {5, 1.15},
		{6, 1.0}, {100, 1.0},
	}

	for _, tc := range cases {
		e := neutralEngine()
		e.requests = stubRequests{active: tc.active}

		got, err := e.Quote(context.Background(), neutralInput(types.TowFlatbed, 5))
		if err != nil {
			t.Fatalf("active=%d: %v", tc.active, err)
		}
		if got.Modifiers.Scarcity != tc.want {
			t.Fatalf("active=%d: scarcity got %v want %v", tc.active, got.Modifiers.Scarcity, tc.want)
		}
	}
}

func TestQuote_DemandBrackets(t *testing.T) {
	cases := []struct {
		available int
		want      float64
	}{
		{0, 1.1}, {2, 1.1},
		{3, 1.0}, {50, 1.0},
	}

	for _, tc := range cases {
		e := neutralEngine()
		e.drivers = stubDrivers{available: tc.available}

		got, err := e.Quote(context.Background(), neutralInput(types.TowFlatbed, 5))
		if err != nil {
			t.Fatalf("available=%d: %v", tc.available, err)
		}
		if got.Modifiers.Demand != tc.want {
			t.Fatalf("available=%d: demand got %v want %v", tc.available, got.Modifiers.Demand, tc.want)
		}
	}
}

func TestQuote_AdverseWeatherBumpsRate(t *testing.T) {
	for _, cond := range []types.WeatherCondition{types.WeatherRain, types.WeatherStorm, types.WeatherSnow} {
		e := neutralEngine()
		e.weather = stubWeather{condition: cond}

		got, err := e.Quote(context.Background(), neutralInput(types.TowFlatbed, 5))
		if err != nil {
			t.Fatalf("%s: %v", cond, err)
		}
		if got.Modifiers.Weather != 1.15 {
			t.Fatalf("%s: weather modifier got %v want 1.15", cond, got.Modifiers.Weather)
		}
	}
}

func TestQuote_WeatherFailureFallsBackToNeutral(t *testing.T) {
	e := neutralEngine()
	e.weather = stubWeather{err: errors.New("provider timeout")}

	got, err := e.Quote(context.Background(), neutralInput(types.TowFlatbed, 12))
	if err != nil {
		t.Fatalf("weather failure must not fail the quote: %v", err)
	}
	if got.Modifiers.Weather != 1.0 {
		t.Fatalf("weather modifier must degrade to neutral, got %v", got.Modifiers.Weather)
	}
	if got.TotalFare != 648.00 {
		t.Fatalf("quote with degraded weather must stay deterministic, got %v", got.TotalFare)
	}
}

func TestQuote_PersistenceFailurePropagates(t *testing.T) {
	e := neutralEngine()
	e.requests = stubRequests{err: errors.New("connection refused")}

	if _, err := e.Quote(context.Background(), neutralInput(types.TowFlatbed, 5)); err == nil {
		t.Fatalf("persistence failure must fail the quote")
	}
}
