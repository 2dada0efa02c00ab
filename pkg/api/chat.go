package api

import "github.com/google/uuid"

// ChatTurnResponse is returned after every handled turn: the advisory text
// with the ID list stripped, plus the recommended doctor IDs in the order the
// model emitted them.
type ChatTurnResponse struct {
	ID      uuid.UUID `json:"id"`
	Message string    `json:"message"`
	Doctors []int64   `json:"doctors"`
}

type ChatSessionMetadata struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

type GetChatsResponse struct {
	Chats []ChatSessionMetadata `json:"chats"`
}

type ChatHistoryItem struct {
	ID         uint    `json:"id"`
	IsFromUser bool    `json:"is_from_user"`
	Content    *string `json:"content"`
	ImageKey   *string `json:"image,omitempty"`
	FileKey    *string `json:"file,omitempty"`
	VoiceURL   *string `json:"voice,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

type ChatDetailResponse struct {
	ChatSessionMetadata
	Messages []ChatHistoryItem `json:"messages"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
