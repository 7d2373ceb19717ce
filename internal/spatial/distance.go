package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm is Earth's mean radius in kilometers
const EarthRadiusKm = 6371.0

// HaversineKm calculates the great-circle distance between two points in
// kilometers using the Haversine formula
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// HeadingDelta calculates the absolute change between two headings in degrees,
// accounting for wraparound. The result is in [0, 180]: 350 -> 10 is a 20
// degree change, not 340.
func HeadingDelta(h1, h2 float64) float64 {
	diff := h2 - h1
	if diff > 180 {
		diff -= 360
	} else if diff < -180 {
		diff += 360
	}
	return math.Abs(diff)
}
