package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
	}{
		{"same point", Point{1, 1}, Point{1, 1}, 0},
		{"one degree of latitude", Point{0, 0}, Point{1, 0}, 111.19},
		{"nairobi to mombasa", Point{-1.2921, 36.8219}, Point{-4.0435, 39.6682}, 440.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Distance(tt.a, tt.b), 1.0)
		})
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	a, b := Point{10, 20}, Point{-5, 33}
	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
}

func TestBoxAroundContainsCircle(t *testing.T) {
	center := Point{Lat: 60, Lng: 10}
	box := BoxAround(center, 50)

	// Due east at 50 km is about 0.9 degrees of longitude at 60N.
	east := Point{Lat: 60, Lng: 10.89}
	assert.True(t, Within(center, east, 50))
	assert.True(t, box.Contains(east))
	assert.False(t, box.Contains(Point{Lat: 61, Lng: 10}))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.23, Round(1.2349, 2))
	assert.Equal(t, 12.5, Round(12.46, 1))
}
