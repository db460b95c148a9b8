package models

// FareModifiers are the five multiplicative factors applied to the base
// per-km rate. Each is >= 1.0.
type FareModifiers struct {
	Scarcity  float64 `json:"scarcity"`
	Weather   float64 `json:"weather"`
	Demand    float64 `json:"demand"`
	Vehicle   float64 `json:"vehicle"`
	TimeOfDay float64 `json:"time_of_day"`
}

// Neutral returns modifiers that leave the base rate untouched.
func NeutralModifiers() FareModifiers {
	return FareModifiers{
		Scarcity:  1.0,
		Weather:   1.0,
		Demand:    1.0,
		Vehicle:   1.0,
		TimeOfDay: 1.0,
	}
}

// FareBreakdown is the transient result of a fare computation. It is
// returned to callers and attached to quotes, never persisted as-is.
type FareBreakdown struct {
	BaseFare       float64       `json:"base_fare"`
	TransactionFee float64       `json:"transaction_fee"`
	BaseKmRate     float64       `json:"base_km_rate"`
	AdjustedKmRate float64       `json:"adjusted_km_rate"`
	DistanceKm     float64       `json:"distance_km"`
	DistanceCost   float64       `json:"distance_cost"`
	BookingFee     float64       `json:"booking_fee"`
	TotalFare      float64       `json:"total_fare"`
	Modifiers      FareModifiers `json:"modifiers"`
}
