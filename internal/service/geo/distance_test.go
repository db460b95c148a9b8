package geo

import (
	"math"
	"testing"
)

func TestHaversineDistance_SamePointIsZero(t *testing.T) {
	if d := HaversineDistance(51.1282, 71.4304, 51.1282, 71.4304); d != 0 {
		t.Fatalf("distance to self must be 0, got %f", d)
	}
}

func TestHaversineDistance_Symmetric(t *testing.T) {
	a := HaversineDistance(51.1282, 71.4304, 43.2380, 76.9452)
	b := HaversineDistance(43.2380, 76.9452, 51.1282, 71.4304)
	if math.Abs(a-b) > 1e-9 {
		t.Fatalf("distance must be symmetric: %f vs %f", a, b)
	}
}

func TestHaversineDistance_KnownPairs(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
		tolKm                  float64
	}{
		// Астана - Алматы, примерно 970 км по прямой
		{"astana-almaty", 51.1282, 71.4304, 43.2380, 76.9452, 970, 15},
		// один градус широты на экваторе ~111.2 км
		{"one-degree-lat", 0, 0, 1, 0, 111.2, 0.5},
		{"across-date-line", 0, 179.5, 0, -179.5, 111.2, 0.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := HaversineDistance(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
			if math.Abs(got-tc.wantKm) > tc.tolKm {
				t.Fatalf("got %f km, want %f±%f", got, tc.wantKm, tc.tolKm)
			}
		})
	}
}
