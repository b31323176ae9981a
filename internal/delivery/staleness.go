package delivery

import (
	"time"

	"herdgate/internal/geo"
)

const (
	// staleAfter is how long a stored buyer location is trusted.
	staleAfter = 24 * time.Hour
	// staleDriftKm is how far a fresh observation may sit from the stored
	// coordinates before a re-confirmation is due.
	staleDriftKm = 100.0
)

// IsLocationStale reports whether a stored buyer location should be
// re-confirmed: no recorded timestamp, a record older than 24 hours, or a
// newly observed position more than 100 km from the stored one.
func IsLocationStale(lastUpdated *time.Time, oldCoords, newCoords *geo.LatLng) bool {
	return isLocationStaleAt(time.Now(), lastUpdated, oldCoords, newCoords)
}

func isLocationStaleAt(now time.Time, lastUpdated *time.Time, oldCoords, newCoords *geo.LatLng) bool {
	if lastUpdated == nil {
		return true
	}
	if now.Sub(*lastUpdated) > staleAfter {
		return true
	}
	if oldCoords != nil && newCoords != nil {
		if geo.ApproxDistanceKm(*oldCoords, *newCoords) > staleDriftKm {
			return true
		}
	}
	return false
}
