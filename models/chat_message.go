package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatMessage is append-only. System messages carry no participant ID.
type ChatMessage struct {
	ID            string    `json:"id" gorm:"type:uuid;primaryKey"`
	RoomID        string    `json:"room_id" gorm:"type:uuid;index;not null"`
	ParticipantID *string   `json:"participant_id" gorm:"type:uuid"`
	Name          string    `json:"name" gorm:"not null"`
	Text          string    `json:"text" gorm:"not null"`
	IsSystem      bool      `json:"is_system" gorm:"not null;default:false"`
	CreatedAt     time.Time `json:"created_at"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
