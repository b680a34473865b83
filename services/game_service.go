package services

import (
	"errors"
	"fmt"
	"time"

	"fasteyes/models"
	"fasteyes/utils/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotHost          = errors.New("only the host can do that")
	ErrNotEnoughPlayers = errors.New("need at least 2 players to start")
	ErrGameInProgress   = errors.New("game already started")
	ErrGameNotStarted   = errors.New("game has not started")
	ErrSessionMismatch  = errors.New("session does not own this participant")
)

// Claim rejection reasons. Rejections are expected outcomes of the race,
// not errors; the loser's request returns Accepted=false and nothing else.
const (
	RejectNotPlaying   = "room is not playing"
	RejectNotTarget    = "not the current target"
	RejectAlreadyTaken = "number already claimed"
)

type ClaimResult struct {
	Accepted bool   `json:"accepted"`
	Finished bool   `json:"finished"`
	Reason   string `json:"reason,omitempty"`
}

// GameService is the authoritative arbiter for room lifecycle and number
// claims. Every decision runs inside one DB transaction with the room row
// locked, so concurrent claims for the same target are totally ordered and
// exactly one wins. A per-room mutex serializes decisions in-process as
// well, which keeps single-node deployments and tests ordered without
// relying on the database's lock queue.
type GameService struct {
	db     *gorm.DB
	events EventPublisher
	chat   *ChatService
	locks  *roomLocker
}

func NewGameService(db *gorm.DB, events EventPublisher, chat *ChatService) *GameService {
	return &GameService{
		db:     db,
		events: events,
		chat:   chat,
		locks:  newRoomLocker(),
	}
}

// forUpdate takes the room row lock on backends that support it. The
// sqlite driver used in tests has no row locks; there the per-room mutex
// alone serializes access.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// StartGame moves a waiting room to playing. Host-only, and the room
// needs at least two participants. Ordering of the guards matches the
// order their failures should be reported in.
func (s *GameService) StartGame(roomID, sessionID string) error {
	defer s.locks.lock(roomID)()

	var room models.Room
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("id = ?", roomID).First(&room).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}

		if err := s.requireHost(tx, roomID, sessionID); err != nil {
			return err
		}

		if room.Status != models.StatusWaiting {
			return ErrGameInProgress
		}

		var count int64
		if err := tx.Model(&models.Participant{}).
			Where("room_id = ?", roomID).
			Count(&count).Error; err != nil {
			return err
		}
		if count < models.MinPlayersToStart {
			return ErrNotEnoughPlayers
		}

		now := time.Now().UTC()
		room.Status = models.StatusPlaying
		room.CurrentTarget = 1
		room.LayoutSeed = uuid.NewString()
		room.StartedAt = &now
		room.FinishedAt = nil
		return tx.Save(&room).Error
	})
	if err != nil {
		return err
	}

	logger.Infof("Room %s started", room.Code)
	s.events.Publish(room.ID, roomEvent(&room))
	s.chat.PostSystem(room.ID, "Game started! Find the numbers in order!")
	return nil
}

// ClaimNumber resolves one tap. Target check, claim insert, score bump,
// target advance and finish detection happen as a single atomic unit, so
// two participants tapping the same number produce exactly one claim.
func (s *GameService) ClaimNumber(roomID, participantID string, number int, sessionID string) (ClaimResult, error) {
	defer s.locks.lock(roomID)()

	var (
		room        models.Room
		participant models.Participant
		claim       models.Claim
		result      ClaimResult
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("id = ?", roomID).First(&room).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}

		if err := tx.Where("id = ? AND room_id = ?", participantID, roomID).
			First(&participant).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrParticipantNotFound
			}
			return err
		}
		if participant.SessionID != sessionID {
			return ErrSessionMismatch
		}

		if room.Status != models.StatusPlaying {
			result = ClaimResult{Reason: RejectNotPlaying}
			return nil
		}
		if number != room.CurrentTarget {
			result = ClaimResult{Reason: RejectNotTarget}
			return nil
		}

		// Should be unreachable given the target check, but guards
		// against replayed requests.
		var existing int64
		if err := tx.Model(&models.Claim{}).
			Where("room_id = ? AND number = ?", roomID, number).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			result = ClaimResult{Reason: RejectAlreadyTaken}
			return nil
		}

		claim = models.Claim{
			RoomID:        roomID,
			Number:        number,
			ParticipantID: participantID,
		}
		if err := tx.Create(&claim).Error; err != nil {
			return err
		}

		if err := tx.Model(&participant).
			UpdateColumn("score", gorm.Expr("score + 1")).Error; err != nil {
			return err
		}
		participant.Score++

		room.CurrentTarget = number + 1
		if room.CurrentTarget > room.MaxNumbers {
			now := time.Now().UTC()
			room.Status = models.StatusFinished
			room.FinishedAt = &now
		}
		if err := tx.Save(&room).Error; err != nil {
			return err
		}

		result = ClaimResult{Accepted: true, Finished: room.Status == models.StatusFinished}
		return nil
	})
	if err != nil {
		return ClaimResult{}, err
	}
	if !result.Accepted {
		return result, nil
	}

	s.events.Publish(room.ID, claimEvent(room.ID, ClaimView{Claim: claim, Color: participant.Color}))
	s.events.Publish(room.ID, participantEvent(room.ID))
	s.events.Publish(room.ID, roomEvent(&room))

	if result.Finished {
		elapsed := ""
		if room.StartedAt != nil && room.FinishedAt != nil {
			elapsed = " in " + FormatElapsed(room.FinishedAt.Sub(*room.StartedAt))
		}
		logger.Infof("Room %s finished, %s claimed the last number", room.Code, participant.Name)
		s.chat.PostSystem(room.ID, fmt.Sprintf("%s finished the game%s!", participant.Name, elapsed))
	} else if number%10 == 0 {
		s.chat.PostSystem(room.ID, fmt.Sprintf("%s reached number %d!", participant.Name, number))
	}

	return result, nil
}

// ResetGame returns a playing or finished room to waiting: claims are
// cleared, scores zeroed, the layout seed rotated. Host-only.
func (s *GameService) ResetGame(roomID, sessionID string) error {
	defer s.locks.lock(roomID)()

	var room models.Room
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("id = ?", roomID).First(&room).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}

		if err := s.requireHost(tx, roomID, sessionID); err != nil {
			return err
		}

		if room.Status == models.StatusWaiting {
			return ErrGameNotStarted
		}

		if err := tx.Where("room_id = ?", roomID).Delete(&models.Claim{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Participant{}).
			Where("room_id = ?", roomID).
			UpdateColumn("score", 0).Error; err != nil {
			return err
		}

		room.Status = models.StatusWaiting
		room.CurrentTarget = 1
		room.LayoutSeed = uuid.NewString()
		room.StartedAt = nil
		room.FinishedAt = nil
		return tx.Save(&room).Error
	})
	if err != nil {
		return err
	}

	logger.Infof("Room %s reset", room.Code)
	s.events.Publish(room.ID, roomEvent(&room))
	s.events.Publish(room.ID, participantEvent(room.ID))
	s.chat.PostSystem(room.ID, "Room reset! Ready for a new game.")
	return nil
}

func (s *GameService) requireHost(tx *gorm.DB, roomID, sessionID string) error {
	var requester models.Participant
	if err := tx.Where("room_id = ? AND session_id = ?", roomID, sessionID).
		First(&requester).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}
	if !requester.IsHost {
		return ErrNotHost
	}
	return nil
}
