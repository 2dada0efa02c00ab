package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Hospital struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"size:255;not null"`
	Latitude  float64
	Longitude float64
	Metadata  datatypes.JSON `gorm:"type:jsonb"` // address, phone, opening hours, ...

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

// ChatSession geolocation is captured at creation and never updated; the
// owner key is likewise immutable.
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
	Content   sql.NullString // null for attachment-only turns
	ImageKey  sql.NullString // object store key
	FileKey   sql.NullString // object store key
	VoiceURL  sql.NullString
	CreatedAt time.Time `gorm:"index"`
}
