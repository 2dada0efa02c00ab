package database

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SQLite only supports one writer at a time, so we need a lock
// whenever we write to the database
var dbMutex sync.Mutex

func CreateSession(ctx context.Context, db *gorm.DB, session *ChatSession) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.WithContext(ctx).Create(session).Error
}

func GetSession(ctx context.Context, db *gorm.DB, sessionID uuid.UUID) (ChatSession, error) {
	var session ChatSession
	err := db.WithContext(ctx).First(&session, "id = ?", sessionID).Error
	return session, err
}

func GetUserSessions(ctx context.Context, db *gorm.DB, userID string) ([]ChatSession, error) {
	var sessions []ChatSession
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func UpdateSessionTitle(ctx context.Context, db *gorm.DB, sessionID uuid.UUID, title string) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.WithContext(ctx).Model(&ChatSession{ID: sessionID}).Update("title", title).Error
}

func DeleteSession(ctx context.Context, db *gorm.DB, sessionID uuid.UUID) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	if err := db.WithContext(ctx).Delete(&ChatMessage{}, "session_id = ?", sessionID).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Delete(&ChatSession{}, "id = ?", sessionID).Error
}

// SaveChatMessage appends a turn to a session's log. Turns are never updated
// or reordered after creation.
func SaveChatMessage(ctx context.Context, db *gorm.DB, message *ChatMessage) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.WithContext(ctx).Create(message).Error
}

// GetChatHistory returns a session's turns in chronological order. The id
// tie-break keeps turns written within the same timestamp tick uniquely
// ordered.
func GetChatHistory(ctx context.Context, db *gorm.DB, sessionID uuid.UUID) ([]ChatMessage, error) {
	var history []ChatMessage
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&history).Error
	return history, err
}

func GetDoctors(ctx context.Context, db *gorm.DB) ([]Doctor, error) {
	var doctors []Doctor
	err := db.WithContext(ctx).Preload("Hospital").Preload("Tags").Find(&doctors).Error
	return doctors, err
}

func GetDoctorsByField(ctx context.Context, db *gorm.DB, field string) ([]Doctor, error) {
	var doctors []Doctor
	err := db.WithContext(ctx).
		Preload("Hospital").
		Preload("Tags").
		Where("LOWER(field) = LOWER(?)", field).
		Find(&doctors).Error
	return doctors, err
}

func GetDoctor(ctx context.Context, db *gorm.DB, doctorID int64) (Doctor, error) {
	var doctor Doctor
	err := db.WithContext(ctx).Preload("Hospital").Preload("Tags").First(&doctor, "id = ?", doctorID).Error
	return doctor, err
}

func GetHospitals(ctx context.Context, db *gorm.DB) ([]Hospital, error) {
	var hospitals []Hospital
	err := db.WithContext(ctx).Find(&hospitals).Error
	return hospitals, err
}

func GetHospital(ctx context.Context, db *gorm.DB, hospitalID int64) (Hospital, error) {
	var hospital Hospital
	err := db.WithContext(ctx).First(&hospital, "id = ?", hospitalID).Error
	return hospital, err
}
