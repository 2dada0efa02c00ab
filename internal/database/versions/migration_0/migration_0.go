package migration_0

// Frozen copy of the initial schema. The live entities in internal/database
// may evolve; this file must not change once released.

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Hospital struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"size:255;not null"`
	Latitude  float64
	Longitude float64
	Metadata  datatypes.JSON `gorm:"type:jsonb"`

	Doctors []Doctor `gorm:"foreignKey:HospitalID;constraint:OnDelete:CASCADE"`
}

type Doctor struct {
	ID          int64  `gorm:"primaryKey"`
	Name        string `gorm:"size:255;not null"`
	Field       string `gorm:"size:100;not null"`
	Description string

	HospitalID int64     `gorm:"not null;index"`
	Hospital   *Hospital `gorm:"foreignKey:HospitalID"`

	Tags []DoctorTag `gorm:"foreignKey:DoctorID;constraint:OnDelete:CASCADE"`
}

type DoctorTag struct {
	DoctorID int64  `gorm:"primaryKey"`
	Tag      string `gorm:"primaryKey"`
}

type ChatSession struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    string    `gorm:"size:100;not null;index"`
	Title     string
	Latitude  float64
	Longitude float64
	CreatedAt time.Time
	UpdatedAt time.Time

	Messages []ChatMessage `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

type ChatMessage struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index"`
	FromUser  bool      `gorm:"not null"`
	Content   sql.NullString
	ImageKey  sql.NullString
	FileKey   sql.NullString
	VoiceURL  sql.NullString
	CreatedAt time.Time `gorm:"index"`
}

func Migration(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Hospital{}, &Doctor{}, &DoctorTag{}, &ChatSession{}, &ChatMessage{},
	)
	if err != nil {
		return fmt.Errorf("initial migration failed: %w", err)
	}
	return nil
}
