package services

import (
	"errors"
	"strings"

	"fasteyes/models"
	"fasteyes/utils/logger"

	"gorm.io/gorm"
)

const maxChatLength = 200

var ErrEmptyMessage = errors.New("message is empty")

const systemSenderName = "System"

type ChatService struct {
	db     *gorm.DB
	events EventPublisher
}

func NewChatService(db *gorm.DB, events EventPublisher) *ChatService {
	return &ChatService{db: db, events: events}
}

// Post inserts a participant chat message and broadcasts it.
func (s *ChatService) Post(roomID, participantID, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	text = truncateRunes(text, maxChatLength)

	var participant models.Participant
	if err := s.db.Where("id = ? AND room_id = ?", participantID, roomID).
		First(&participant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}

	message := models.ChatMessage{
		RoomID:        roomID,
		ParticipantID: &participant.ID,
		Name:          participant.Name,
		Text:          text,
	}
	if err := s.db.Create(&message).Error; err != nil {
		return nil, err
	}

	s.events.Publish(roomID, chatEvent(roomID, &message))
	return &message, nil
}

// PostSystem inserts a system announcement (joins, starts, milestones).
func (s *ChatService) PostSystem(roomID, text string) {
	message := models.ChatMessage{
		RoomID:   roomID,
		Name:     systemSenderName,
		Text:     text,
		IsSystem: true,
	}
	if err := s.db.Create(&message).Error; err != nil {
		// Announcements are best-effort; the game state is unaffected.
		logger.Errorf("Dropping system message for room %s: %v", roomID, err)
		return
	}

	s.events.Publish(roomID, chatEvent(roomID, &message))
}

// History returns a room's chat ordered by creation time.
func (s *ChatService) History(roomID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	if err := s.db.Where("room_id = ?", roomID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}
