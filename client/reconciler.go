package client

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"fasteyes/models"
	"fasteyes/services"
)

// Backend is the narrow slice of the server the reconciler talks to:
// snapshot reads for (re)sync and the four mutating operations. APIClient
// is the HTTP implementation.
type Backend interface {
	Room(ctx context.Context, code string) (*models.Room, error)
	Participants(ctx context.Context, code string) ([]models.Participant, error)
	Claims(ctx context.Context, code string) ([]services.ClaimView, error)
	ChatHistory(ctx context.Context, code string) ([]models.ChatMessage, error)

	Claim(ctx context.Context, code, participantID string, number int) (services.ClaimResult, error)
	Start(ctx context.Context, code string) error
	Reset(ctx context.Context, code string) error
	SendChat(ctx context.Context, code, participantID, text string) error
}

// Reconciler keeps a local room mirror consistent against a change feed
// that is at-least-once and unordered across entity kinds. Every event is
// treated as a hint to merge or re-fetch; after a dropped subscription the
// whole baseline is re-fetched instead of replaying deltas.
type Reconciler struct {
	backend   Backend
	code      string
	sessionID string
	onFinish  func(elapsed time.Duration)

	mu         sync.Mutex
	state      State
	finishSeen bool
	seenChat   map[string]bool
}

func NewReconciler(backend Backend, code, sessionID string, onFinish func(time.Duration)) *Reconciler {
	return &Reconciler{
		backend:   backend,
		code:      strings.ToUpper(strings.TrimSpace(code)),
		sessionID: sessionID,
		onFinish:  onFinish,
		state:     State{Claimed: make(map[int]ClaimMark)},
		seenChat:  make(map[string]bool),
	}
}

// Snapshot returns a copy of the current local view.
func (r *Reconciler) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

// Positions returns the board layout for the current room. Every client
// computes this locally from the shared seed.
func (r *Reconciler) Positions() []services.NumberPosition {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Room == nil {
		return nil
	}
	return services.Positions(r.state.Room.LayoutSeed, r.state.Room.MaxNumbers)
}

// Resync replaces the whole local view with a fresh baseline snapshot.
func (r *Reconciler) Resync(ctx context.Context) error {
	room, err := r.backend.Room(ctx, r.code)
	if err != nil {
		return err
	}
	participants, err := r.backend.Participants(ctx, r.code)
	if err != nil {
		return err
	}
	claims, err := r.backend.Claims(ctx, r.code)
	if err != nil {
		return err
	}
	messages, err := r.backend.ChatHistory(ctx, r.code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.state.Room = room
	r.state.Participants = participants
	r.state.Me = findBySession(participants, r.sessionID)
	r.state.Claimed = make(map[int]ClaimMark, len(claims))
	for _, c := range claims {
		r.state.Claimed[c.Number] = ClaimMark{ParticipantID: c.ParticipantID, Color: c.Color}
	}
	r.state.Messages = messages
	r.seenChat = make(map[string]bool, len(messages))
	for _, m := range messages {
		r.seenChat[m.ID] = true
	}
	r.mu.Unlock()

	r.checkFinished(room)
	return nil
}

// Apply merges one change event into the local view. Applying the same
// event twice leaves the state unchanged.
func (r *Reconciler) Apply(ctx context.Context, event services.ChangeEvent) error {
	switch event.Kind {
	case services.EventKindRoom:
		var room models.Room
		if err := json.Unmarshal(event.Payload, &room); err != nil {
			return err
		}
		r.mu.Lock()
		r.state.Room = &room
		if room.Status == models.StatusWaiting {
			// Reset: claims were cleared in bulk server-side.
			r.state.Claimed = make(map[int]ClaimMark)
			r.finishSeen = false
		}
		r.mu.Unlock()
		r.checkFinished(&room)

	case services.EventKindParticipant:
		// Joins, leaves and score changes are coalesced into one re-read.
		participants, err := r.backend.Participants(ctx, r.code)
		if err != nil {
			return err
		}
		r.mu.Lock()
		r.state.Participants = participants
		r.state.Me = findBySession(participants, r.sessionID)
		r.mu.Unlock()

	case services.EventKindClaim:
		var claim services.ClaimView
		if err := json.Unmarshal(event.Payload, &claim); err != nil {
			return err
		}
		r.mu.Lock()
		if _, known := r.state.Claimed[claim.Number]; !known {
			r.state.Claimed[claim.Number] = ClaimMark{
				ParticipantID: claim.ParticipantID,
				Color:         claim.Color,
			}
		}
		r.mu.Unlock()

	case services.EventKindChat:
		var message models.ChatMessage
		if err := json.Unmarshal(event.Payload, &message); err != nil {
			return err
		}
		r.mu.Lock()
		if !r.seenChat[message.ID] {
			r.seenChat[message.ID] = true
			r.state.Messages = append(r.state.Messages, message)
		}
		r.mu.Unlock()
	}

	return nil
}

// checkFinished fires the end-of-game callback exactly once per game.
func (r *Reconciler) checkFinished(room *models.Room) {
	if room.Status != models.StatusFinished || room.StartedAt == nil || room.FinishedAt == nil {
		return
	}

	r.mu.Lock()
	fire := !r.finishSeen
	r.finishSeen = true
	r.mu.Unlock()

	if fire && r.onFinish != nil {
		r.onFinish(room.FinishedAt.Sub(*room.StartedAt))
	}
}

// SubmitClick issues a claim for a tapped number. Losing the race is the
// expected case and is silently ignored; the board catches up from the
// winner's change events.
func (r *Reconciler) SubmitClick(ctx context.Context, number int) error {
	r.mu.Lock()
	room := r.state.Room
	me := r.state.Me
	_, alreadyClaimed := r.state.Claimed[number]
	r.mu.Unlock()

	if room == nil || me == nil || room.Status != models.StatusPlaying {
		return nil
	}
	if number != room.CurrentTarget || alreadyClaimed {
		return nil
	}

	// No optimistic update: the authoritative decision comes back through
	// the change feed.
	_, err := r.backend.Claim(ctx, r.code, me.ID, number)
	return err
}

// SubmitChatMessage posts a chat message as the current participant.
func (r *Reconciler) SubmitChatMessage(ctx context.Context, text string) error {
	r.mu.Lock()
	me := r.state.Me
	r.mu.Unlock()

	if me == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	return r.backend.SendChat(ctx, r.code, me.ID, text)
}

// RequestStart asks the server to start the game. Guard failures (not
// host, too few players) surface to the caller as errors for display.
func (r *Reconciler) RequestStart(ctx context.Context) error {
	return r.backend.Start(ctx, r.code)
}

// RequestReset asks the server to reset the room for another game.
func (r *Reconciler) RequestReset(ctx context.Context) error {
	return r.backend.Reset(ctx, r.code)
}

func findBySession(participants []models.Participant, sessionID string) *models.Participant {
	for i := range participants {
		if participants[i].SessionID == sessionID {
			return &participants[i]
		}
	}
	return nil
}
