// Package geo provides great-circle distance and the proximity gate used to
// admit occupancy reports only from devices near the reported location.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by the spherical approximation.
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// DistanceKm returns the haversine distance between two coordinates in km.
// It accepts any finite input and returns 0 for identical points.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := radians(lat1)
	lat2Rad := radians(lat2)
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1Rad)*math.Cos(lat2Rad)*sinLon*sinLon

	// Rounding can push a a hair outside [0,1] near antipodes.
	a = math.Min(1, math.Max(0, a))

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Distance is DistanceKm for two Points.
func Distance(from, to Point) float64 {
	return DistanceKm(from.Lat, from.Lng, to.Lat, to.Lng)
}

// Meters converts kilometres to whole metres, rounded to nearest.
func Meters(km float64) int {
	return int(math.Round(km * 1000))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
