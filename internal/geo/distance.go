package geo

import "math"

// LatLng is a WGS84 coordinate pair in decimal degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// kmPerDegree is the flat-earth conversion factor used across the service.
// Distances derived from it are planar approximations, not geodesic ones;
// downstream radius checks were calibrated against this exact factor.
const kmPerDegree = 111.0

// ApproxDistanceKm returns the straight-line distance between two points in
// kilometers, computed as the Euclidean difference in degrees scaled by
// 111 km/degree.
func ApproxDistanceKm(a, b LatLng) float64 {
	dLat := a.Lat - b.Lat
	dLng := a.Lng - b.Lng
	return math.Sqrt(dLat*dLat+dLng*dLng) * kmPerDegree
}
