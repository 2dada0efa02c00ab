package triage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"clinic-backend/internal/database"
	"clinic-backend/internal/extract"
	"clinic-backend/internal/geo"
	"clinic-backend/internal/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrEmptyTurn is returned when a turn carries neither text nor any
	// attachment.
	ErrEmptyTurn = errors.New("at least one of message, image, or file must be provided")

	// ErrTooBusy is returned when the per-session lock table is full.
	ErrTooBusy = errors.New("too many concurrent chats")
)

// Sessions grow one user and one assistant turn per request; replaying the
// whole log forever would eventually blow the prompt budget, so history is
// capped to the most recent turns.
const maxHistoryTurns = 50

const maxConcurrentSessions = 4096

const fallbackTitle = "New chat"

// Synthesizer turns advisory text into an audio URL. Optional; synthesis
// failures never fail the turn.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// Result is the outcome of one successfully handled turn.
type Result struct {
	SessionID uuid.UUID
	Message   string  // advisory text, bracket list stripped
	DoctorIDs []int64 // ordered as the model emitted them
}

// Service runs the chat-to-doctor-recommendation pipeline: extract attachment
// text, compose the prompt, call the model, parse the reply, persist both
// turns. The directory (doctors, hospitals) is read-only here; the
// conversation log is the only state it mutates, append-only.
type Service struct {
	db        *gorm.DB
	generator Generator
	objects   storage.ObjectStore
	voice     Synthesizer
	locks     sessionLocks
}

func NewService(db *gorm.DB, generator Generator, objects storage.ObjectStore, voice Synthesizer) *Service {
	return &Service{
		db:        db,
		generator: generator,
		objects:   objects,
		voice:     voice,
		locks:     newSessionLocks(maxConcurrentSessions),
	}
}

// StartChat handles the first turn of a new conversation. The session row is
// only written after the model answers: a failed AI call leaves no partial
// state behind.
func (s *Service) StartChat(ctx context.Context, userID string, lat, lon float64, in TurnInput) (Result, error) {
	if in.Empty() {
		return Result{}, ErrEmptyTurn
	}

	sessionID := uuid.New()

	raw, advisory, doctorIDs, err := s.runTurn(ctx, sessionID, lat, lon, nil, in)
	if err != nil {
		return Result{}, err
	}

	session := &database.ChatSession{
		ID:        sessionID,
		UserID:    userID,
		Title:     s.sessionTitle(ctx, in),
		Latitude:  lat,
		Longitude: lon,
	}
	if err := database.CreateSession(ctx, s.db, session); err != nil {
		return Result{}, fmt.Errorf("could not create chat session: %w", err)
	}

	if err := s.persistTurn(ctx, sessionID, in, raw, advisory); err != nil {
		return Result{}, err
	}

	return Result{SessionID: sessionID, Message: advisory, DoctorIDs: doctorIDs}, nil
}

// ContinueChat appends a turn to an existing conversation. Turns on the same
// session are serialized so the history each prompt sees is consistent with
// the eventual write order.
func (s *Service) ContinueChat(ctx context.Context, sessionID uuid.UUID, userID string, in TurnInput) (Result, error) {
	if in.Empty() {
		return Result{}, ErrEmptyTurn
	}

	if err := s.locks.Lock(sessionID); err != nil {
		return Result{}, ErrTooBusy
	}
	defer s.locks.Unlock(sessionID) //nolint:errcheck

	session, err := database.GetSession(ctx, s.db, sessionID)
	if err != nil {
		return Result{}, err
	}
	if session.UserID != userID {
		// Do not reveal that the session exists at all.
		return Result{}, gorm.ErrRecordNotFound
	}

	history, err := database.GetChatHistory(ctx, s.db, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("could not load chat history: %w", err)
	}
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	raw, advisory, doctorIDs, err := s.runTurn(ctx, sessionID, session.Latitude, session.Longitude, history, in)
	if err != nil {
		return Result{}, err
	}

	if err := s.persistTurn(ctx, sessionID, in, raw, advisory); err != nil {
		return Result{}, err
	}

	if err := s.db.WithContext(ctx).Model(&database.ChatSession{ID: sessionID}).
		Update("updated_at", time.Now()).Error; err != nil {
		slog.Error("error touching session timestamp", "session_id", sessionID, "error", err)
	}

	return Result{SessionID: sessionID, Message: advisory, DoctorIDs: doctorIDs}, nil
}

// runTurn does everything up to and including the model call. It performs no
// writes, so a generation failure cannot leave a partial turn behind.
func (s *Service) runTurn(ctx context.Context, sessionID uuid.UUID, lat, lon float64, history []database.ChatMessage, in TurnInput) (raw, advisory string, doctorIDs []int64, err error) {
	var attachmentText string
	if in.File.Present() {
		attachmentText = extract.Text(in.File.Filename, in.File.Data)
	}

	langSource := in.Message
	if langSource == "" {
		langSource = attachmentText
	}

	doctors, err := database.GetDoctors(ctx, s.db)
	if err != nil {
		return "", "", nil, fmt.Errorf("could not load doctor directory: %w", err)
	}

	hospitals, err := database.GetHospitals(ctx, s.db)
	if err != nil {
		return "", "", nil, fmt.Errorf("could not load hospitals: %w", err)
	}

	nearestName := ""
	nearest, _, err := geo.Nearest(lat, lon, hospitals)
	if err != nil {
		return "", "", nil, err
	}
	if nearest != nil {
		nearestName = nearest.Name
	}

	prompt := ComposePrompt(PromptInput{
		History:         history,
		Message:         in.Message,
		Doctors:         doctors,
		NearestHospital: nearestName,
		AttachmentText:  attachmentText,
		Language:        DetectLanguage(langSource),
	})

	raw, err = s.generator.Generate(ctx, prompt, in.Image)
	if err != nil {
		return "", "", nil, err
	}

	advisory, doctorIDs = ParseResponse(raw)
	return raw, advisory, doctorIDs, nil
}

// persistTurn appends the user turn and the assistant turn. The assistant
// turn stores the raw model text, bracket list included, so history replay
// shows the model its own earlier recommendations.
func (s *Service) persistTurn(ctx context.Context, sessionID uuid.UUID, in TurnInput, raw, advisory string) error {
	userMsg := &database.ChatMessage{
		SessionID: sessionID,
		FromUser:  true,
		Content:   nullString(in.Message),
		ImageKey:  nullString(s.storeAttachment(ctx, sessionID, in.Image)),
		FileKey:   nullString(s.storeAttachment(ctx, sessionID, in.File)),
	}
	if err := database.SaveChatMessage(ctx, s.db, userMsg); err != nil {
		return fmt.Errorf("could not save user turn: %w", err)
	}

	assistantMsg := &database.ChatMessage{
		SessionID: sessionID,
		FromUser:  false,
		Content:   nullString(raw),
		VoiceURL:  nullString(s.synthesize(ctx, advisory)),
	}
	if err := database.SaveChatMessage(ctx, s.db, assistantMsg); err != nil {
		return fmt.Errorf("could not save assistant turn: %w", err)
	}

	return nil
}

// storeAttachment writes the uploaded bytes to the object store and returns
// the key, or "" when there is nothing to store or the write fails. Losing
// the stored copy is preferable to losing the turn.
func (s *Service) storeAttachment(ctx context.Context, sessionID uuid.UUID, att *Attachment) string {
	if !att.Present() || s.objects == nil {
		return ""
	}

	key := fmt.Sprintf("chats/%s/%s%s", sessionID, uuid.New(), filepath.Ext(att.Filename))
	if err := s.objects.PutObject(ctx, key, bytes.NewReader(att.Data)); err != nil {
		slog.Error("error storing attachment", "session_id", sessionID, "key", key, "error", err)
		return ""
	}
	return key
}

func (s *Service) synthesize(ctx context.Context, advisory string) string {
	if s.voice == nil || advisory == "" {
		return ""
	}

	url, err := s.voice.Synthesize(ctx, advisory)
	if err != nil {
		slog.Warn("voice synthesis failed, continuing without audio", "error", err)
		return ""
	}
	return url
}

func (s *Service) sessionTitle(ctx context.Context, in TurnInput) string {
	message := in.Message
	if message == "" {
		message = AttachmentPlaceholder
	}

	title, err := s.generator.Title(ctx, message)
	if err != nil || title == "" {
		slog.Warn("could not generate session title, using fallback", "error", err)
		return fallbackTitle
	}
	return title
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
