package api

import (
	"errors"
	"math"
	"net/http"
	"sort"

	"clinic-backend/internal/database"
	"clinic-backend/internal/geo"
	"clinic-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// DirectoryService exposes read-only listings of hospitals and doctors. The
// directory is reference data: writes happen out of band through the seed
// tool.
type DirectoryService struct {
	db *gorm.DB
}

func NewDirectoryService(db *gorm.DB) *DirectoryService {
	return &DirectoryService{db: db}
}

func (s *DirectoryService) AddRoutes(r chi.Router) {
	r.Route("/hospitals", func(r chi.Router) {
		r.Get("/", RestHandler(s.GetHospitals))
		r.Get("/{hospital_id}", RestHandler(s.GetHospital))
	})
	r.Route("/doctors", func(r chi.Router) {
		r.Get("/", RestHandler(s.GetDoctors))
		r.Get("/{doctor_id}", RestHandler(s.GetDoctor))
	})
}

func (s *DirectoryService) GetHospitals(r *http.Request) (any, error) {
	hospitals, err := database.GetHospitals(r.Context(), s.db)
	if err != nil {
		return nil, err
	}

	resp := make([]api.HospitalResponse, 0, len(hospitals))
	for _, hospital := range hospitals {
		resp = append(resp, hospitalResponse(hospital))
	}
	return resp, nil
}

func (s *DirectoryService) GetHospital(r *http.Request) (any, error) {
	hospitalID, err := URLParamInt64(r, "hospital_id")
	if err != nil {
		return nil, err
	}

	hospital, err := database.GetHospital(r.Context(), s.db, hospitalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, CodedErrorf(http.StatusNotFound, "hospital not found")
	}
	if err != nil {
		return nil, err
	}

	return hospitalResponse(hospital), nil
}

type getDoctorsParams struct {
	Field     string   `schema:"field"`
	Latitude  *float64 `schema:"latitude"`
	Longitude *float64 `schema:"longitude"`
}

// GetDoctors lists doctors, optionally filtered by field (case-insensitive).
// When both latitude and longitude are given the listing is ranked by the
// caller's distance to each doctor's hospital, nearest first.
func (s *DirectoryService) GetDoctors(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[getDoctorsParams](r)
	if err != nil {
		return nil, err
	}

	var doctors []database.Doctor
	if params.Field != "" {
		doctors, err = database.GetDoctorsByField(r.Context(), s.db, params.Field)
	} else {
		doctors, err = database.GetDoctors(r.Context(), s.db)
	}
	if err != nil {
		return nil, err
	}

	resp := make([]api.DoctorResponse, 0, len(doctors))
	for _, doctor := range doctors {
		resp = append(resp, doctorResponse(doctor))
	}

	if params.Latitude != nil && params.Longitude != nil {
		if !geo.ValidDegrees(*params.Latitude, *params.Longitude) {
			return nil, CodedErrorf(http.StatusBadRequest, "invalid latitude or longitude values")
		}
		if err := rankByDistance(resp, doctors, *params.Latitude, *params.Longitude); err != nil {
			return nil, err
		}
	}

	return resp, nil
}

func (s *DirectoryService) GetDoctor(r *http.Request) (any, error) {
	doctorID, err := URLParamInt64(r, "doctor_id")
	if err != nil {
		return nil, err
	}

	doctor, err := database.GetDoctor(r.Context(), s.db, doctorID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, CodedErrorf(http.StatusNotFound, "doctor not found")
	}
	if err != nil {
		return nil, err
	}

	return doctorResponse(doctor), nil
}

// rankByDistance annotates each entry with the distance from (lat, lon) to
// the doctor's hospital and sorts nearest first. The sort is stable so that
// doctors at the same hospital keep their listing order.
func rankByDistance(resp []api.DoctorResponse, doctors []database.Doctor, lat, lon float64) error {
	for i := range doctors {
		if doctors[i].Hospital == nil {
			continue
		}
		dist, err := geo.Distance(lat, lon, doctors[i].Hospital.Latitude, doctors[i].Hospital.Longitude)
		if err != nil {
			return err
		}
		rounded := math.Round(dist*100) / 100
		resp[i].HospitalDistanceKm = &rounded
		resp[i].HospitalLocation = &api.HospitalLocation{
			Name:      doctors[i].Hospital.Name,
			Latitude:  doctors[i].Hospital.Latitude,
			Longitude: doctors[i].Hospital.Longitude,
		}
	}

	sort.SliceStable(resp, func(i, j int) bool {
		di, dj := resp[i].HospitalDistanceKm, resp[j].HospitalDistanceKm
		if di == nil {
			return false
		}
		if dj == nil {
			return true
		}
		return *di < *dj
	})
	return nil
}

func hospitalResponse(hospital database.Hospital) api.HospitalResponse {
	resp := api.HospitalResponse{
		ID:        hospital.ID,
		Name:      hospital.Name,
		Latitude:  hospital.Latitude,
		Longitude: hospital.Longitude,
	}
	if len(hospital.Metadata) > 0 {
		resp.Metadata = []byte(hospital.Metadata)
	}
	return resp
}

func doctorResponse(doctor database.Doctor) api.DoctorResponse {
	tags := make([]string, 0, len(doctor.Tags))
	for _, tag := range doctor.Tags {
		tags = append(tags, tag.Tag)
	}

	return api.DoctorResponse{
		ID:          doctor.ID,
		Name:        doctor.Name,
		Field:       doctor.Field,
		Description: doctor.Description,
		Tags:        tags,
		HospitalID:  doctor.HospitalID,
	}
}
