package similarity

import "math"

const earthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance in kilometers between two
// lat/lng points.
func HaversineKM(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}

// WithinDegrees reports whether two points are within delta degrees on both
// axes. The coordinate tiers of the dedup cascade use degree boxes rather
// than true distance so the same record always lands in a predictable cell.
func WithinDegrees(lat1, lng1, lat2, lng2, delta float64) bool {
	return math.Abs(lat1-lat2) <= delta && math.Abs(lng1-lng2) <= delta
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
