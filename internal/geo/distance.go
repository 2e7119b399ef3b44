package geo

import "math"

// earthRadiusMeters is the mean Earth radius used for great-circle distances.
const earthRadiusMeters = 6371000.0

// DistanceMeters returns the haversine great-circle distance in meters between
// two coordinates given in degrees. Inputs are assumed to be within valid
// latitude/longitude ranges; callers validate at the boundary.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// WithinRadius reports whether the two coordinates are within radiusMeters of
// each other.
func WithinRadius(lat1, lon1, lat2, lon2, radiusMeters float64) bool {
	return DistanceMeters(lat1, lon1, lat2, lon2) <= radiusMeters
}
