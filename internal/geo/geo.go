// Package geo provides great-circle distance math for candidate
// filtering and scoring.
package geo

import "math"

const earthRadiusKM = 6371

// Point is a coordinate pair plus an explicit flag for whether the
// user ever set a location. (0,0) is a legal coordinate in the Gulf of
// Guinea, so "no location" must never be inferred from zero values.
type Point struct {
	Lat float64
	Lon float64
	Set bool
}

// Distance returns the haversine great-circle distance in kilometers.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}

// Between returns the distance between two points and whether the
// distance is known at all. When either side never set a location the
// second return is false and the distance must not be used for
// filtering or scoring.
func Between(a, b Point) (float64, bool) {
	if !a.Set || !b.Set {
		return 0, false
	}
	return Distance(a.Lat, a.Lon, b.Lat, b.Lon), true
}

// ValidCoords reports whether a coordinate pair is on the globe.
func ValidCoords(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
