package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	backend "clinic-backend/internal/api"
	"clinic-backend/internal/database"
	"clinic-backend/internal/triage"
	"clinic-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubGenerator struct {
	response string
	title    string
	err      error
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string, image *triage.Attachment) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func (g *stubGenerator) Title(ctx context.Context, message string) (string, error) {
	return g.title, nil
}

func createDB(t *testing.T, create ...any) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, database.GetMigrator(db).Migrate())

	for _, c := range create {
		require.NoError(t, db.Create(c).Error)
	}

	return db
}

func createRouter(db *gorm.DB, gen triage.Generator) chi.Router {
	pipeline := triage.NewService(db, gen, nil, nil)
	router := chi.NewRouter()
	backend.NewChatService(db, pipeline).AddRoutes(router)
	return router
}

// chatForm builds the multipart body the chat endpoints consume.
func chatForm(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func doChatRequest(router chi.Router, method, target, userID string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
		req.Header.Set("Content-Type", contentType)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateChat(t *testing.T) {
	db := createDB(t,
		&database.Hospital{ID: 1, Name: "City Hospital", Latitude: 10.01, Longitude: 10},
		&database.Doctor{ID: 7, Name: "Dr. Heart", Field: "Cardiology", HospitalID: 1},
	)
	router := createRouter(db, &stubGenerator{response: "See a cardiologist.\n\n[7]", title: "Chest pain"})

	body, contentType := chatForm(t, map[string]string{
		"message":   "my chest hurts",
		"latitude":  "10",
		"longitude": "10",
	})
	rec := doChatRequest(router, http.MethodPost, "/chats", "user-1", body, contentType)

	assert.Equal(t, http.StatusOK, rec.Code, "received response: "+rec.Body.String())
	var resp api.ChatTurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEqual(t, uuid.Nil, resp.ID)
	assert.Equal(t, "See a cardiologist.", resp.Message)
	assert.Equal(t, []int64{7}, resp.Doctors)
}

func TestCreateChatRequiresAuth(t *testing.T) {
	router := createRouter(createDB(t), &stubGenerator{})

	body, contentType := chatForm(t, map[string]string{
		"message": "hi", "latitude": "10", "longitude": "10",
	})
	rec := doChatRequest(router, http.MethodPost, "/chats", "", body, contentType)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateChatRequiresCoordinates(t *testing.T) {
	router := createRouter(createDB(t), &stubGenerator{})

	body, contentType := chatForm(t, map[string]string{"message": "hi"})
	rec := doChatRequest(router, http.MethodPost, "/chats", "user-1", body, contentType)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "latitude")
}

func TestCreateChatRejectsOutOfRangeCoordinates(t *testing.T) {
	router := createRouter(createDB(t), &stubGenerator{})

	body, contentType := chatForm(t, map[string]string{
		"message": "hi", "latitude": "95", "longitude": "10",
	})
	rec := doChatRequest(router, http.MethodPost, "/chats", "user-1", body, contentType)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateChatEmptyTurn(t *testing.T) {
	router := createRouter(createDB(t), &stubGenerator{})

	body, contentType := chatForm(t, map[string]string{
		"latitude": "10", "longitude": "10",
	})
	rec := doChatRequest(router, http.MethodPost, "/chats", "user-1", body, contentType)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateChatGenerationFailure(t *testing.T) {
	router := createRouter(createDB(t), &stubGenerator{err: triage.ErrGenerationFailed})

	body, contentType := chatForm(t, map[string]string{
		"message": "hi", "latitude": "10", "longitude": "10",
	})
	rec := doChatRequest(router, http.MethodPost, "/chats", "user-1", body, contentType)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ai could not generate an answer", resp.Error)
}

func TestContinueChat(t *testing.T) {
	db := createDB(t)
	gen := &stubGenerator{response: "First. []", title: "t"}
	router := createRouter(db, gen)

	body, contentType := chatForm(t, map[string]string{
		"message": "hello", "latitude": "10", "longitude": "10",
	})
	rec := doChatRequest(router, http.MethodPost, "/chats", "user-1", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	var started api.ChatTurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	gen.response = "Second. []"
	body, contentType = chatForm(t, map[string]string{"message": "again"})
	rec = doChatRequest(router, http.MethodPatch, "/chats/"+started.ID.String(), "user-1", body, contentType)

	assert.Equal(t, http.StatusOK, rec.Code, "received response: "+rec.Body.String())
	var resp api.ChatTurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, started.ID, resp.ID)
	assert.Equal(t, "Second.", resp.Message)
}

func TestContinueChatUnknownSession(t *testing.T) {
	router := createRouter(createDB(t), &stubGenerator{})

	body, contentType := chatForm(t, map[string]string{"message": "hi"})
	rec := doChatRequest(router, http.MethodPatch, "/chats/"+uuid.NewString(), "user-1", body, contentType)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContinueChatForeignSession(t *testing.T) {
	db := createDB(t)
	router := createRouter(db, &stubGenerator{response: "ok []", title: "t"})

	body, contentType := chatForm(t, map[string]string{
		"message": "hi", "latitude": "10", "longitude": "10",
	})
	rec := doChatRequest(router, http.MethodPost, "/chats", "owner", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	var started api.ChatTurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	// A different user gets a 404, not a 403: session existence is private.
	body, contentType = chatForm(t, map[string]string{"message": "hi"})
	rec = doChatRequest(router, http.MethodPatch, "/chats/"+started.ID.String(), "intruder", body, contentType)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetChatsAndDetail(t *testing.T) {
	db := createDB(t)
	router := createRouter(db, &stubGenerator{response: "Advice. [1]", title: "Sore throat"})

	body, contentType := chatForm(t, map[string]string{
		"message": "my throat hurts", "latitude": "10", "longitude": "10",
	})
	rec := doChatRequest(router, http.MethodPost, "/chats", "user-1", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	var started api.ChatTurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	rec = doChatRequest(router, http.MethodGet, "/chats", "user-1", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var chats api.GetChatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chats))
	require.Len(t, chats.Chats, 1)
	assert.Equal(t, started.ID, chats.Chats[0].ID)
	assert.Equal(t, "Sore throat", chats.Chats[0].Title)

	// Another user sees an empty listing.
	rec = doChatRequest(router, http.MethodGet, "/chats", "user-2", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chats))
	assert.Empty(t, chats.Chats)

	rec = doChatRequest(router, http.MethodGet, "/chats/"+started.ID.String(), "user-1", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var detail api.ChatDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Sore throat", detail.Title)
	require.Len(t, detail.Messages, 2)
	assert.True(t, detail.Messages[0].IsFromUser)
	require.NotNil(t, detail.Messages[0].Content)
	assert.Equal(t, "my throat hurts", *detail.Messages[0].Content)
	assert.False(t, detail.Messages[1].IsFromUser)
	require.NotNil(t, detail.Messages[1].Content)
	assert.Equal(t, "Advice. [1]", *detail.Messages[1].Content)
}

func TestGetHistory(t *testing.T) {
	db := createDB(t)
	router := createRouter(db, &stubGenerator{response: "Advice. []", title: "t"})

	body, contentType := chatForm(t, map[string]string{
		"message": "hello", "latitude": "10", "longitude": "10",
	})
	rec := doChatRequest(router, http.MethodPost, "/chats", "user-1", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	var started api.ChatTurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	rec = doChatRequest(router, http.MethodGet, "/chats/"+started.ID.String()+"/history", "user-1", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var items []api.ChatHistoryItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 2)

	rec = doChatRequest(router, http.MethodGet, "/chats/"+started.ID.String()+"/history", "user-2", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteChat(t *testing.T) {
	db := createDB(t)
	router := createRouter(db, &stubGenerator{response: "Advice. []", title: "t"})

	body, contentType := chatForm(t, map[string]string{
		"message": "hello", "latitude": "10", "longitude": "10",
	})
	rec := doChatRequest(router, http.MethodPost, "/chats", "user-1", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	var started api.ChatTurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	// Foreign delete is rejected and leaves the chat in place.
	rec = doChatRequest(router, http.MethodDelete, "/chats/"+started.ID.String(), "user-2", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doChatRequest(router, http.MethodDelete, "/chats/"+started.ID.String(), "user-1", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doChatRequest(router, http.MethodGet, "/chats/"+started.ID.String(), "user-1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatInvalidUUID(t *testing.T) {
	router := createRouter(createDB(t), &stubGenerator{})

	rec := doChatRequest(router, http.MethodGet, "/chats/not-a-uuid", "user-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
