package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Participant struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	RoomID    string    `json:"room_id" gorm:"type:uuid;uniqueIndex:idx_room_session;not null"`
	Name      string    `json:"name" gorm:"not null"`
	Color     string    `json:"color" gorm:"not null"`
	Score     int       `json:"score" gorm:"not null;default:0"`
	IsHost    bool      `json:"is_host" gorm:"not null;default:false"`
	SessionID string    `json:"session_id" gorm:"uniqueIndex:idx_room_session;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Participant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
