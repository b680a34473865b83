package services

import (
	"errors"
	"fmt"
	"strings"

	"fasteyes/models"
	"fasteyes/utils/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrRoomFull            = errors.New("room already has 4 players")
	ErrNameRequired        = errors.New("player name is required")
	ErrInvalidMaxNumbers   = errors.New("max numbers must be between 9 and 100")
)

const maxNameLength = 20

// truncateRunes caps s at limit runes without splitting a multi-byte
// character.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// ParticipantColors is the fixed palette assigned by join order. It has
// exactly models.MaxParticipants entries.
var ParticipantColors = []string{
	"hsl(180, 100%, 50%)", // cyan
	"hsl(330, 100%, 60%)", // pink
	"hsl(150, 100%, 50%)", // green
	"hsl(50, 100%, 55%)",  // yellow
}

type RoomService struct {
	db     *gorm.DB
	events EventPublisher
	chat   *ChatService
	locks  *roomLocker
}

func NewRoomService(db *gorm.DB, events EventPublisher, chat *ChatService) *RoomService {
	return &RoomService{db: db, events: events, chat: chat, locks: newRoomLocker()}
}

// NormalizeRoomCode makes code input case-insensitive; codes are stored
// uppercase.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateRoom creates a room and its host participant in one transaction.
func (s *RoomService) CreateRoom(name string, maxNumbers int, sessionID string) (*models.Room, *models.Participant, error) {
	name = truncateRunes(strings.TrimSpace(name), maxNameLength)
	if name == "" {
		return nil, nil, ErrNameRequired
	}
	if maxNumbers < models.MinNumbers || maxNumbers > models.MaxNumbersLimit {
		return nil, nil, ErrInvalidMaxNumbers
	}

	code, err := s.generateCode()
	if err != nil {
		return nil, nil, err
	}

	room := models.Room{
		Code:          code,
		MaxNumbers:    maxNumbers,
		Status:        models.StatusWaiting,
		CurrentTarget: 1,
		LayoutSeed:    uuid.NewString(),
	}
	host := models.Participant{
		Name:      name,
		Color:     ParticipantColors[0],
		IsHost:    true,
		SessionID: sessionID,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		host.RoomID = room.ID
		if err := tx.Create(&host).Error; err != nil {
			return err
		}
		room.HostID = host.ID
		return tx.Model(&room).Update("host_id", host.ID).Error
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Infof("Room %s created by %s (max %d numbers)", room.Code, host.Name, room.MaxNumbers)
	s.chat.PostSystem(room.ID, fmt.Sprintf("%s created the room", host.Name))
	return &room, &host, nil
}

// JoinRoom adds a participant to a waiting room, or returns the existing
// record when the same session rejoins after a disconnect. Rejoins are
// allowed in any status; new participants only while the room is waiting.
// Seat assignment runs under the room lock so two racing joins cannot both
// take the last seat or the same color.
func (s *RoomService) JoinRoom(code, name, sessionID string) (*models.Room, *models.Participant, error) {
	room, err := s.GetRoomByCode(code)
	if err != nil {
		return nil, nil, err
	}
	defer s.locks.lock(room.ID)()

	name = truncateRunes(strings.TrimSpace(name), maxNameLength)

	var participant models.Participant
	rejoined := false

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Re-read under the row lock; the seat count below must not race
		// with another node's join.
		if err := forUpdate(tx).Where("id = ?", room.ID).First(room).Error; err != nil {
			return err
		}

		var existing []models.Participant
		if err := tx.Where("room_id = ?", room.ID).
			Order("created_at ASC").
			Find(&existing).Error; err != nil {
			return err
		}

		for _, p := range existing {
			if p.SessionID == sessionID {
				participant = p
				rejoined = true
				return nil
			}
		}

		if name == "" {
			return ErrNameRequired
		}
		if room.Status != models.StatusWaiting {
			return ErrGameInProgress
		}
		if len(existing) >= models.MaxParticipants {
			return ErrRoomFull
		}

		participant = models.Participant{
			RoomID:    room.ID,
			Name:      name,
			Color:     ParticipantColors[len(existing)],
			SessionID: sessionID,
		}
		return tx.Create(&participant).Error
	})
	if err != nil {
		return nil, nil, err
	}

	if !rejoined {
		logger.Infof("%s joined room %s", participant.Name, room.Code)
		s.events.Publish(room.ID, participantEvent(room.ID))
		s.chat.PostSystem(room.ID, fmt.Sprintf("%s joined the room", participant.Name))
	}

	return room, &participant, nil
}

func (s *RoomService) GetRoomByCode(code string) (*models.Room, error) {
	var room models.Room
	if err := s.db.Where("code = ?", NormalizeRoomCode(code)).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// ListParticipants returns a room's participants in join order.
func (s *RoomService) ListParticipants(roomID string) ([]models.Participant, error) {
	var participants []models.Participant
	if err := s.db.Where("room_id = ?", roomID).
		Order("created_at ASC").
		Find(&participants).Error; err != nil {
		return nil, err
	}
	return participants, nil
}

// ListClaims returns a room's claims with each claimant's color attached,
// ordered by number.
func (s *RoomService) ListClaims(roomID string) ([]ClaimView, error) {
	var claims []models.Claim
	if err := s.db.Where("room_id = ?", roomID).
		Order("number ASC").
		Find(&claims).Error; err != nil {
		return nil, err
	}

	participants, err := s.ListParticipants(roomID)
	if err != nil {
		return nil, err
	}
	colors := make(map[string]string, len(participants))
	for _, p := range participants {
		colors[p.ID] = p.Color
	}

	views := make([]ClaimView, 0, len(claims))
	for _, c := range claims {
		views = append(views, ClaimView{Claim: c, Color: colors[c.ParticipantID]})
	}
	return views, nil
}

func (s *RoomService) generateCode() (string, error) {
	// Regenerate on collision; with a 32^6 space a retry is already rare.
	for attempt := 0; attempt < 10; attempt++ {
		code := GenerateRoomCode()
		var count int64
		if err := s.db.Model(&models.Room{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique room code")
}
