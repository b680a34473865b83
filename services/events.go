package services

import (
	"context"
	"encoding/json"

	"fasteyes/models"
	"fasteyes/utils/logger"

	"github.com/redis/go-redis/v9"
)

// Change-feed entity kinds. Consumers must not assume any ordering
// across kinds; every event is a hint to merge or re-fetch, never a log
// entry (delivery is at-least-once).
const (
	EventKindRoom        = "room"
	EventKindParticipant = "participant"
	EventKindClaim       = "claim"
	EventKindChat        = "chat"
)

// ChangeEvent is the envelope broadcast to every client in a room.
// Room, claim and chat events carry the full row; participant events
// carry no payload and mean "re-fetch the participant list" (joins and
// score changes are coalesced into one re-read).
type ChangeEvent struct {
	Kind    string          `json:"kind"`
	RoomID  string          `json:"room_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ClaimView is the claim row annotated with the claimant's color so
// clients can paint the cell without a secondary lookup.
type ClaimView struct {
	models.Claim
	Color string `json:"color"`
}

type EventPublisher interface {
	Publish(roomID string, event ChangeEvent)
}

func RoomChannel(roomID string) string {
	return "room:" + roomID + ":events"
}

// RoomChannelPattern matches every room's event channel.
const RoomChannelPattern = "room:*:events"

// RedisPublisher fans change events out through redis pub/sub so every
// app instance's hub sees them.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(roomID string, event ChangeEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("Failed to marshal %s event for room %s: %v", event.Kind, roomID, err)
		return
	}

	if err := p.rdb.Publish(context.Background(), RoomChannel(roomID), data).Err(); err != nil {
		logger.Errorf("Failed to publish %s event for room %s: %v", event.Kind, roomID, err)
	}
}

func roomEvent(room *models.Room) ChangeEvent {
	payload, _ := json.Marshal(room)
	return ChangeEvent{Kind: EventKindRoom, RoomID: room.ID, Payload: payload}
}

func participantEvent(roomID string) ChangeEvent {
	return ChangeEvent{Kind: EventKindParticipant, RoomID: roomID}
}

func claimEvent(roomID string, claim ClaimView) ChangeEvent {
	payload, _ := json.Marshal(claim)
	return ChangeEvent{Kind: EventKindClaim, RoomID: roomID, Payload: payload}
}

func chatEvent(roomID string, message *models.ChatMessage) ChangeEvent {
	payload, _ := json.Marshal(message)
	return ChangeEvent{Kind: EventKindChat, RoomID: roomID, Payload: payload}
}
