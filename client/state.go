package client

import (
	"fasteyes/models"
)

// ClaimMark is what the board needs to paint a claimed cell.
type ClaimMark struct {
	ParticipantID string `json:"participant_id"`
	Color         string `json:"color"`
}

// State is one client's local mirror of a room. It is only ever a view:
// all writes go through the server's atomic operations and come back as
// change events or resyncs.
type State struct {
	Room         *models.Room
	Participants []models.Participant
	Me           *models.Participant
	Claimed      map[int]ClaimMark
	Messages     []models.ChatMessage
}

func (s State) clone() State {
	out := s
	if s.Room != nil {
		room := *s.Room
		out.Room = &room
	}
	if s.Me != nil {
		me := *s.Me
		out.Me = &me
	}
	out.Participants = append([]models.Participant(nil), s.Participants...)
	out.Messages = append([]models.ChatMessage(nil), s.Messages...)
	out.Claimed = make(map[int]ClaimMark, len(s.Claimed))
	for number, mark := range s.Claimed {
		out.Claimed[number] = mark
	}
	return out
}
