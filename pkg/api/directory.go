package api

import "encoding/json"

type HospitalResponse struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

type HospitalLocation struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type DoctorResponse struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Field       string   `json:"field"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	HospitalID  int64    `json:"hospital_id"`

	// Present on distance-ranked listings.
	HospitalDistanceKm *float64          `json:"hospital_distance_km,omitempty"`
	HospitalLocation   *HospitalLocation `json:"hospital_location,omitempty"`
}
