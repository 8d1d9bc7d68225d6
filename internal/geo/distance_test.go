package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineIdenticalPoints(t *testing.T) {
	assert.Equal(t, 0.0, Haversine(10.7350, 106.7200, 10.7350, 106.7200))
}

func TestHaversineKnownDistances(t *testing.T) {
	cases := []struct {
		name     string
		a, b     Point
		expected float64
		delta    float64
	}{
		{
			name:     "district 7 neighbours",
			a:        Point{Lat: 10.7324, Lon: 106.7196},
			b:        Point{Lat: 10.7350, Lon: 106.7200},
			expected: 0.29,
			delta:    0.01,
		},
		{
			name:     "one degree of latitude",
			a:        Point{Lat: 0, Lon: 0},
			b:        Point{Lat: 1, Lon: 0},
			expected: 111.19,
			delta:    0.01,
		},
		{
			name:     "saigon to hanoi",
			a:        Point{Lat: 10.7769, Lon: 106.7009},
			b:        Point{Lat: 21.0278, Lon: 105.8342},
			expected: 1143.6,
			delta:    1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, DistanceKm(tc.a, tc.b), tc.delta)
		})
	}
}

func TestHaversineSymmetric(t *testing.T) {
	a := Point{Lat: 10.80, Lon: 106.65}
	b := Point{Lat: 10.72, Lon: 106.74}
	assert.InDelta(t, DistanceKm(a, b), DistanceKm(b, a), 1e-9)
}
