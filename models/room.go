package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Room statuses. A room always starts waiting, moves to playing when the
// host starts the game, and to finished when the last number is claimed.
const (
	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusFinished = "finished"
)

const (
	MinNumbers        = 9
	MaxNumbersLimit   = 100
	MaxParticipants   = 4
	MinPlayersToStart = 2
)

type Room struct {
	ID            string     `json:"id" gorm:"type:uuid;primaryKey"`
	Code          string     `json:"code" gorm:"uniqueIndex;not null"`
	HostID        string     `json:"host_id" gorm:"type:uuid"`
	MaxNumbers    int        `json:"max_numbers" gorm:"not null"`
	Status        string     `json:"status" gorm:"not null;default:'waiting'"`
	CurrentTarget int        `json:"current_target" gorm:"not null;default:1"`
	LayoutSeed    string     `json:"layout_seed"`
	StartedAt     *time.Time `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// Relationships
	Participants []Participant `json:"participants,omitempty" gorm:"foreignKey:RoomID"`
}

func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
