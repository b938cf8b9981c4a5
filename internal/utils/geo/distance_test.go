package geo_test

import (
	"testing"

	"github.com/kindredapp/engine/internal/utils/geo"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	// London -> Paris is roughly 344 km
	d := geo.DistanceKm(51.5074, -0.1278, 48.8566, 2.3522)
	assert.InDelta(t, 344, d, 5)
}

func TestDistanceZeroForSamePoint(t *testing.T) {
	assert.InDelta(t, 0, geo.DistanceKm(51.5, -0.1, 51.5, -0.1), 0.0001)
}

func TestDistanceSymmetric(t *testing.T) {
	a := geo.DistanceKm(40.7128, -74.0060, 34.0522, -118.2437)
	b := geo.DistanceKm(34.0522, -118.2437, 40.7128, -74.0060)
	assert.InDelta(t, a, b, 0.0001)
}
