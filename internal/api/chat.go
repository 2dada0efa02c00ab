package api

import (
	"errors"
	"net/http"

	"clinic-backend/internal/database"
	"clinic-backend/internal/geo"
	"clinic-backend/internal/triage"
	"clinic-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const timestampFormat = "2006-01-02 15:04:05"

type ChatService struct {
	db     *gorm.DB
	triage *triage.Service
}

func NewChatService(db *gorm.DB, pipeline *triage.Service) *ChatService {
	return &ChatService{db: db, triage: pipeline}
}

func (s *ChatService) AddRoutes(r chi.Router) {
	r.Route("/chats", func(r chi.Router) {
		r.Use(UserIdentity)
		r.Get("/", RestHandler(s.GetChats))
		r.Post("/", RestHandler(s.CreateChat))
		r.Get("/{chat_id}", RestHandler(s.GetChat))
		r.Patch("/{chat_id}", RestHandler(s.ContinueChat))
		r.Get("/{chat_id}/history", RestHandler(s.GetHistory))
		r.Delete("/{chat_id}", RestHandler(s.DeleteChat))
	})
}

func (s *ChatService) GetChats(r *http.Request) (any, error) {
	sessions, err := database.GetUserSessions(r.Context(), s.db, UserID(r))
	if err != nil {
		return nil, err
	}

	resp := api.GetChatsResponse{Chats: make([]api.ChatSessionMetadata, 0, len(sessions))}
	for _, session := range sessions {
		resp.Chats = append(resp.Chats, sessionMetadata(session))
	}
	return resp, nil
}

// CreateChat starts a conversation from a multipart form with latitude,
// longitude, and at least one of message, image, or file. The AI reply and
// the recommended doctor IDs come back in the same response.
func (s *ChatService) CreateChat(r *http.Request) (any, error) {
	lat, err := FormFloat(r, "latitude")
	if err != nil {
		return nil, err
	}
	lon, err := FormFloat(r, "longitude")
	if err != nil {
		return nil, err
	}
	if !geo.ValidDegrees(lat, lon) {
		return nil, CodedErrorf(http.StatusBadRequest, "invalid latitude or longitude values")
	}

	turn, err := ParseMultipartTurn(r)
	if err != nil {
		return nil, err
	}

	result, err := s.triage.StartChat(r.Context(), UserID(r), lat, lon, turn)
	if err != nil {
		return nil, triageError(err)
	}

	return turnResponse(result), nil
}

func (s *ChatService) ContinueChat(r *http.Request) (any, error) {
	chatID, err := URLParamUUID(r, "chat_id")
	if err != nil {
		return nil, err
	}

	turn, err := ParseMultipartTurn(r)
	if err != nil {
		return nil, err
	}

	result, err := s.triage.ContinueChat(r.Context(), chatID, UserID(r), turn)
	if err != nil {
		return nil, triageError(err)
	}

	return turnResponse(result), nil
}

func (s *ChatService) GetChat(r *http.Request) (any, error) {
	chatID, err := URLParamUUID(r, "chat_id")
	if err != nil {
		return nil, err
	}

	session, err := s.ownedSession(r, chatID)
	if err != nil {
		return nil, err
	}

	history, err := database.GetChatHistory(r.Context(), s.db, chatID)
	if err != nil {
		return nil, err
	}

	resp := api.ChatDetailResponse{
		ChatSessionMetadata: sessionMetadata(session),
		Messages:            make([]api.ChatHistoryItem, 0, len(history)),
	}
	for _, msg := range history {
		resp.Messages = append(resp.Messages, historyItem(msg))
	}
	return resp, nil
}

func (s *ChatService) GetHistory(r *http.Request) (any, error) {
	chatID, err := URLParamUUID(r, "chat_id")
	if err != nil {
		return nil, err
	}

	if _, err := s.ownedSession(r, chatID); err != nil {
		return nil, err
	}

	history, err := database.GetChatHistory(r.Context(), s.db, chatID)
	if err != nil {
		return nil, err
	}

	items := make([]api.ChatHistoryItem, 0, len(history))
	for _, msg := range history {
		items = append(items, historyItem(msg))
	}
	return items, nil
}

func (s *ChatService) DeleteChat(r *http.Request) (any, error) {
	chatID, err := URLParamUUID(r, "chat_id")
	if err != nil {
		return nil, err
	}

	if _, err := s.ownedSession(r, chatID); err != nil {
		return nil, err
	}

	if err := database.DeleteSession(r.Context(), s.db, chatID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *ChatService) ownedSession(r *http.Request, chatID uuid.UUID) (database.ChatSession, error) {
	session, err := database.GetSession(r.Context(), s.db, chatID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return database.ChatSession{}, CodedErrorf(http.StatusNotFound, "chat not found")
	}
	if err != nil {
		return database.ChatSession{}, err
	}
	if session.UserID != UserID(r) {
		return database.ChatSession{}, CodedErrorf(http.StatusNotFound, "chat not found")
	}
	return session, nil
}

// triageError maps pipeline failures onto the client-facing taxonomy.
func triageError(err error) error {
	switch {
	case errors.Is(err, triage.ErrEmptyTurn):
		return CodedError(http.StatusBadRequest, err)
	case errors.Is(err, triage.ErrGenerationFailed):
		return CodedErrorf(http.StatusInternalServerError, "ai could not generate an answer")
	case errors.Is(err, triage.ErrTooBusy):
		return CodedError(http.StatusServiceUnavailable, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return CodedErrorf(http.StatusNotFound, "chat not found")
	default:
		return err
	}
}

func turnResponse(result triage.Result) api.ChatTurnResponse {
	doctors := result.DoctorIDs
	if doctors == nil {
		doctors = []int64{}
	}
	return api.ChatTurnResponse{
		ID:      result.SessionID,
		Message: result.Message,
		Doctors: doctors,
	}
}

func sessionMetadata(session database.ChatSession) api.ChatSessionMetadata {
	return api.ChatSessionMetadata{
		ID:        session.ID,
		Title:     session.Title,
		Latitude:  session.Latitude,
		Longitude: session.Longitude,
		CreatedAt: session.CreatedAt.Format(timestampFormat),
		UpdatedAt: session.UpdatedAt.Format(timestampFormat),
	}
}

func historyItem(msg database.ChatMessage) api.ChatHistoryItem {
	item := api.ChatHistoryItem{
		ID:         msg.ID,
		IsFromUser: msg.FromUser,
		CreatedAt:  msg.CreatedAt.Format(timestampFormat),
	}
	if msg.Content.Valid {
		item.Content = &msg.Content.String
	}
	if msg.ImageKey.Valid {
		item.ImageKey = &msg.ImageKey.String
	}
	if msg.FileKey.Valid {
		item.FileKey = &msg.FileKey.String
	}
	if msg.VoiceURL.Valid {
		item.VoiceURL = &msg.VoiceURL.String
	}
	return item
}
