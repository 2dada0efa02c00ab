package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	backend "clinic-backend/internal/api"
	"clinic-backend/internal/database"
	"clinic-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func createDirectoryRouter(db *gorm.DB) chi.Router {
	router := chi.NewRouter()
	backend.NewDirectoryService(db).AddRoutes(router)
	return router
}

func TestGetHospitals(t *testing.T) {
	db := createDB(t,
		&database.Hospital{ID: 1, Name: "City Hospital", Latitude: 10, Longitude: 20,
			Metadata: datatypes.JSON(`{"phone": "123"}`)},
		&database.Hospital{ID: 2, Name: "County Clinic", Latitude: 30, Longitude: 40},
	)
	router := createDirectoryRouter(db)

	req := httptest.NewRequest(http.MethodGet, "/hospitals", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp []api.HospitalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "City Hospital", resp[0].Name)
	assert.JSONEq(t, `{"phone": "123"}`, string(resp[0].Metadata))
	assert.Nil(t, resp[1].Metadata)
}

func TestGetHospital(t *testing.T) {
	db := createDB(t, &database.Hospital{ID: 5, Name: "City Hospital", Latitude: 1, Longitude: 2})
	router := createDirectoryRouter(db)

	req := httptest.NewRequest(http.MethodGet, "/hospitals/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp api.HospitalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(5), resp.ID)

	req = httptest.NewRequest(http.MethodGet, "/hospitals/99", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/hospitals/abc", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDoctors(t *testing.T) {
	db := createDB(t,
		&database.Hospital{ID: 1, Name: "Near Hospital", Latitude: 10.01, Longitude: 10},
		&database.Hospital{ID: 2, Name: "Far Hospital", Latitude: 11, Longitude: 11},
		&database.Doctor{ID: 1, Name: "Dr. Far", Field: "Cardiology", HospitalID: 2},
		&database.Doctor{ID: 2, Name: "Dr. Near", Field: "Dermatology", HospitalID: 1},
		&database.DoctorTag{DoctorID: 2, Tag: "rash"},
	)
	router := createDirectoryRouter(db)

	req := httptest.NewRequest(http.MethodGet, "/doctors", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp []api.DoctorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)

	// Without coordinates no distance annotation is present.
	assert.Nil(t, resp[0].HospitalDistanceKm)
	assert.Nil(t, resp[0].HospitalLocation)
}

func TestGetDoctorsFieldFilter(t *testing.T) {
	db := createDB(t,
		&database.Hospital{ID: 1, Name: "H", Latitude: 1, Longitude: 1},
		&database.Doctor{ID: 1, Name: "Dr. Heart", Field: "Cardiology", HospitalID: 1},
		&database.Doctor{ID: 2, Name: "Dr. Skin", Field: "Dermatology", HospitalID: 1},
	)
	router := createDirectoryRouter(db)

	req := httptest.NewRequest(http.MethodGet, "/doctors?field=CARDIOLOGY", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp []api.DoctorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "Dr. Heart", resp[0].Name)
}

func TestGetDoctorsRankedByDistance(t *testing.T) {
	db := createDB(t,
		&database.Hospital{ID: 1, Name: "Near Hospital", Latitude: 10.01, Longitude: 10},
		&database.Hospital{ID: 2, Name: "Far Hospital", Latitude: 11, Longitude: 11},
		&database.Doctor{ID: 1, Name: "Dr. Far", Field: "Cardiology", HospitalID: 2},
		&database.Doctor{ID: 2, Name: "Dr. Near", Field: "Dermatology", HospitalID: 1},
	)
	router := createDirectoryRouter(db)

	req := httptest.NewRequest(http.MethodGet, "/doctors?latitude=10&longitude=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, "received response: "+rec.Body.String())
	var resp []api.DoctorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)

	assert.Equal(t, "Dr. Near", resp[0].Name)
	require.NotNil(t, resp[0].HospitalDistanceKm)
	assert.Less(t, *resp[0].HospitalDistanceKm, 2.0)
	require.NotNil(t, resp[0].HospitalLocation)
	assert.Equal(t, "Near Hospital", resp[0].HospitalLocation.Name)

	assert.Equal(t, "Dr. Far", resp[1].Name)
	require.NotNil(t, resp[1].HospitalDistanceKm)
	assert.Greater(t, *resp[1].HospitalDistanceKm, *resp[0].HospitalDistanceKm)
}

func TestGetDoctorsRejectsInvalidCoordinates(t *testing.T) {
	db := createDB(t)
	router := createDirectoryRouter(db)

	req := httptest.NewRequest(http.MethodGet, "/doctors?latitude=95&longitude=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDoctor(t *testing.T) {
	db := createDB(t,
		&database.Hospital{ID: 1, Name: "H", Latitude: 1, Longitude: 1},
		&database.Doctor{ID: 3, Name: "Dr. Heart", Field: "Cardiology", Description: "20 years experience", HospitalID: 1},
		&database.DoctorTag{DoctorID: 3, Tag: "heart"},
		&database.DoctorTag{DoctorID: 3, Tag: "chest pain"},
	)
	router := createDirectoryRouter(db)

	req := httptest.NewRequest(http.MethodGet, "/doctors/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp api.DoctorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.ID)
	assert.Equal(t, "20 years experience", resp.Description)
	assert.ElementsMatch(t, []string{"heart", "chest pain"}, resp.Tags)

	req = httptest.NewRequest(http.MethodGet, "/doctors/99", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
