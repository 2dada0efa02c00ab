package geo

import (
	"fmt"
	"math"

	"clinic-backend/internal/database"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371

// ErrInvalidCoordinate is returned when a coordinate is NaN or infinite.
// Degree range validation is the caller's responsibility.
var ErrInvalidCoordinate = fmt.Errorf("coordinate is not a finite number")

// Distance returns the great-circle distance in kilometers between two
// (latitude, longitude) pairs given in degrees.
func Distance(lat1, lon1, lat2, lon2 float64) (float64, error) {
	for _, v := range []float64{lat1, lon1, lat2, lon2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, ErrInvalidCoordinate
		}
	}

	rlat1 := lat1 * math.Pi / 180
	rlon1 := lon1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	rlon2 := lon2 * math.Pi / 180

	dlat := rlat2 - rlat1
	dlon := rlon2 - rlon1

	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(rlat1)*math.Cos(rlat2)*math.Pow(math.Sin(dlon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c, nil
}

// Nearest returns the hospital closest to (lat, lon) and its distance in
// kilometers. Ties are broken by scan order: a later hospital at the same
// distance never replaces an earlier one. Returns nil if hospitals is empty.
func Nearest(lat, lon float64, hospitals []database.Hospital) (*database.Hospital, float64, error) {
	var nearest *database.Hospital
	minDist := math.Inf(1)

	for i := range hospitals {
		dist, err := Distance(lat, lon, hospitals[i].Latitude, hospitals[i].Longitude)
		if err != nil {
			return nil, 0, fmt.Errorf("hospital %d has invalid coordinates: %w", hospitals[i].ID, err)
		}
		if dist < minDist {
			minDist = dist
			nearest = &hospitals[i]
		}
	}

	if nearest == nil {
		return nil, 0, nil
	}
	return nearest, minDist, nil
}

// ValidDegrees reports whether lat and lon are finite and within the
// conventional degree ranges.
func ValidDegrees(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
