package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	assert.Zero(t, HaversineDistance(12.97, 77.59, 12.97, 77.59))

	// one degree of latitude is roughly 111.2km
	d := HaversineDistance(0, 0, 1, 0)
	assert.InDelta(t, 111195, d, 50)
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(-90, 180))
	assert.False(t, ValidCoordinates(90.1, 0))
	assert.False(t, ValidCoordinates(0, -180.5))
	assert.False(t, ValidCoordinates(math.NaN(), 0))
}
