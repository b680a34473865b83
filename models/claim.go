package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Claim records that a participant was first to tap a number while it was
// the room's current target. At most one claim exists per number per room.
type Claim struct {
	ID            string    `json:"id" gorm:"type:uuid;primaryKey"`
	RoomID        string    `json:"room_id" gorm:"type:uuid;index;not null;uniqueIndex:idx_room_number"`
	Number        int       `json:"number" gorm:"not null;uniqueIndex:idx_room_number"`
	ParticipantID string    `json:"participant_id" gorm:"type:uuid;not null"`
	ClaimedAt     time.Time `json:"claimed_at"`
	CreatedAt     time.Time `json:"created_at"`
}

func (c *Claim) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.ClaimedAt.IsZero() {
		c.ClaimedAt = time.Now().UTC()
	}
	return nil
}
