package client

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"fasteyes/models"
	"fasteyes/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu           sync.Mutex
	room         models.Room
	participants []models.Participant
	claims       []services.ClaimView
	messages     []models.ChatMessage

	claimResult      services.ClaimResult
	claimedNumbers   []int
	startCalls       int
	resetCalls       int
	sentChat         []string
	participantReads int
}

func (f *fakeBackend) Room(ctx context.Context, code string) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room := f.room
	return &room, nil
}

func (f *fakeBackend) Participants(ctx context.Context, code string) ([]models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.participantReads++
	return append([]models.Participant(nil), f.participants...), nil
}

func (f *fakeBackend) Claims(ctx context.Context, code string) ([]services.ClaimView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]services.ClaimView(nil), f.claims...), nil
}

func (f *fakeBackend) ChatHistory(ctx context.Context, code string) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ChatMessage(nil), f.messages...), nil
}

func (f *fakeBackend) Claim(ctx context.Context, code, participantID string, number int) (services.ClaimResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimedNumbers = append(f.claimedNumbers, number)
	return f.claimResult, nil
}

func (f *fakeBackend) Start(ctx context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	return nil
}

func (f *fakeBackend) Reset(ctx context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetCalls++
	return nil
}

func (f *fakeBackend) SendChat(ctx context.Context, code, participantID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentChat = append(f.sentChat, text)
	return nil
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		room: models.Room{
			ID:            "room-1",
			Code:          "ABC234",
			MaxNumbers:    9,
			Status:        models.StatusPlaying,
			CurrentTarget: 1,
			LayoutSeed:    "seed-1",
		},
		participants: []models.Participant{
			{ID: "p-1", RoomID: "room-1", Name: "Alice", Color: "cyan", IsHost: true, SessionID: "sess-a"},
			{ID: "p-2", RoomID: "room-1", Name: "Bob", Color: "pink", SessionID: "sess-b"},
		},
	}
}

func roomEv(room models.Room) services.ChangeEvent {
	payload, _ := json.Marshal(room)
	return services.ChangeEvent{Kind: services.EventKindRoom, RoomID: room.ID, Payload: payload}
}

func claimEv(roomID string, number int, participantID, color string) services.ChangeEvent {
	payload, _ := json.Marshal(services.ClaimView{
		Claim: models.Claim{ID: "c-" + participantID, RoomID: roomID, Number: number, ParticipantID: participantID},
		Color: color,
	})
	return services.ChangeEvent{Kind: services.EventKindClaim, RoomID: roomID, Payload: payload}
}

func chatEv(roomID, id, text string) services.ChangeEvent {
	payload, _ := json.Marshal(models.ChatMessage{ID: id, RoomID: roomID, Name: "Alice", Text: text})
	return services.ChangeEvent{Kind: services.EventKindChat, RoomID: roomID, Payload: payload}
}

func TestResync_Baseline(t *testing.T) {
	backend := newFakeBackend()
	backend.claims = []services.ClaimView{
		{Claim: models.Claim{Number: 1, ParticipantID: "p-1"}, Color: "cyan"},
	}
	backend.messages = []models.ChatMessage{{ID: "m-1", Text: "hi"}}

	r := NewReconciler(backend, "abc234", "sess-b", nil)
	require.NoError(t, r.Resync(context.Background()))

	state := r.Snapshot()
	require.NotNil(t, state.Room)
	assert.Equal(t, "room-1", state.Room.ID)
	assert.Len(t, state.Participants, 2)
	require.NotNil(t, state.Me)
	assert.Equal(t, "p-2", state.Me.ID)
	assert.Equal(t, ClaimMark{ParticipantID: "p-1", Color: "cyan"}, state.Claimed[1])
	assert.Len(t, state.Messages, 1)
}

func TestApply_ClaimEventIsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	r := NewReconciler(backend, "ABC234", "sess-a", nil)
	require.NoError(t, r.Resync(context.Background()))

	event := claimEv("room-1", 1, "p-1", "cyan")
	require.NoError(t, r.Apply(context.Background(), event))
	once := r.Snapshot()

	require.NoError(t, r.Apply(context.Background(), event))
	twice := r.Snapshot()

	assert.Equal(t, once.Claimed, twice.Claimed)
	assert.Len(t, twice.Claimed, 1)

	// A later duplicate never overwrites the winner
	require.NoError(t, r.Apply(context.Background(), claimEv("room-1", 1, "p-2", "pink")))
	assert.Equal(t, "p-1", r.Snapshot().Claimed[1].ParticipantID)
}

func TestApply_ParticipantEventTriggersRefetch(t *testing.T) {
	backend := newFakeBackend()
	r := NewReconciler(backend, "ABC234", "sess-a", nil)
	require.NoError(t, r.Resync(context.Background()))

	backend.mu.Lock()
	backend.participants[1].Score = 3
	backend.participants = append(backend.participants, models.Participant{
		ID: "p-3", RoomID: "room-1", Name: "Carol", Color: "green", SessionID: "sess-c",
	})
	backend.mu.Unlock()

	require.NoError(t, r.Apply(context.Background(), services.ChangeEvent{
		Kind:   services.EventKindParticipant,
		RoomID: "room-1",
	}))

	state := r.Snapshot()
	assert.Len(t, state.Participants, 3)
	assert.Equal(t, 3, state.Participants[1].Score)
}

func TestApply_RoomEventReplacesState(t *testing.T) {
	backend := newFakeBackend()
	r := NewReconciler(backend, "ABC234", "sess-a", nil)
	require.NoError(t, r.Resync(context.Background()))

	updated := backend.room
	updated.CurrentTarget = 5
	require.NoError(t, r.Apply(context.Background(), roomEv(updated)))

	assert.Equal(t, 5, r.Snapshot().Room.CurrentTarget)
}

func TestApply_FinishFiresExactlyOnce(t *testing.T) {
	backend := newFakeBackend()

	var (
		mu       sync.Mutex
		finishes []time.Duration
	)
	r := NewReconciler(backend, "ABC234", "sess-a", func(elapsed time.Duration) {
		mu.Lock()
		finishes = append(finishes, elapsed)
		mu.Unlock()
	})
	require.NoError(t, r.Resync(context.Background()))

	started := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	finished := started.Add(83450 * time.Millisecond)

	done := backend.room
	done.Status = models.StatusFinished
	done.CurrentTarget = 10
	done.StartedAt = &started
	done.FinishedAt = &finished

	// The feed is at-least-once: the finished room arrives three times
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Apply(context.Background(), roomEv(done)))
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, finishes, 1)
	assert.Equal(t, 83450*time.Millisecond, finishes[0])
}

func TestApply_ResetClearsClaimsAndRearmsFinish(t *testing.T) {
	backend := newFakeBackend()

	finishCount := 0
	r := NewReconciler(backend, "ABC234", "sess-a", func(time.Duration) { finishCount++ })
	require.NoError(t, r.Resync(context.Background()))
	require.NoError(t, r.Apply(context.Background(), claimEv("room-1", 1, "p-1", "cyan")))

	started := time.Now().UTC()
	finished := started.Add(time.Minute)

	done := backend.room
	done.Status = models.StatusFinished
	done.StartedAt = &started
	done.FinishedAt = &finished
	require.NoError(t, r.Apply(context.Background(), roomEv(done)))
	require.Equal(t, 1, finishCount)

	waiting := backend.room
	waiting.Status = models.StatusWaiting
	waiting.CurrentTarget = 1
	waiting.LayoutSeed = "seed-2"
	require.NoError(t, r.Apply(context.Background(), roomEv(waiting)))

	state := r.Snapshot()
	assert.Empty(t, state.Claimed, "reset must clear the local claim map")

	// Next game's finish fires again
	require.NoError(t, r.Apply(context.Background(), roomEv(done)))
	assert.Equal(t, 2, finishCount)
}

func TestApply_ChatDedupesByID(t *testing.T) {
	backend := newFakeBackend()
	r := NewReconciler(backend, "ABC234", "sess-a", nil)
	require.NoError(t, r.Resync(context.Background()))

	event := chatEv("room-1", "m-1", "hello")
	require.NoError(t, r.Apply(context.Background(), event))
	require.NoError(t, r.Apply(context.Background(), event))
	require.NoError(t, r.Apply(context.Background(), chatEv("room-1", "m-2", "again")))

	state := r.Snapshot()
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "hello", state.Messages[0].Text)
	assert.Equal(t, "again", state.Messages[1].Text)
}

func TestSubmitClick(t *testing.T) {
	backend := newFakeBackend()
	backend.claimResult = services.ClaimResult{Accepted: true}

	r := NewReconciler(backend, "ABC234", "sess-a", nil)
	require.NoError(t, r.Resync(context.Background()))

	// Wrong target: filtered locally, no request issued
	require.NoError(t, r.SubmitClick(context.Background(), 3))
	assert.Empty(t, backend.claimedNumbers)

	// Already claimed locally
	require.NoError(t, r.Apply(context.Background(), claimEv("room-1", 1, "p-2", "pink")))
	require.NoError(t, r.SubmitClick(context.Background(), 1))
	assert.Empty(t, backend.claimedNumbers)

	// Current target goes through
	updated := backend.room
	updated.CurrentTarget = 2
	require.NoError(t, r.Apply(context.Background(), roomEv(updated)))
	require.NoError(t, r.SubmitClick(context.Background(), 2))
	assert.Equal(t, []int{2}, backend.claimedNumbers)

	// A lost race comes back Accepted=false and is silently swallowed
	backend.claimResult = services.ClaimResult{Reason: services.RejectNotTarget}
	updated.CurrentTarget = 3
	require.NoError(t, r.Apply(context.Background(), roomEv(updated)))
	require.NoError(t, r.SubmitClick(context.Background(), 3))
}

func TestSubmitClick_IgnoredWhileWaiting(t *testing.T) {
	backend := newFakeBackend()
	backend.room.Status = models.StatusWaiting

	r := NewReconciler(backend, "ABC234", "sess-a", nil)
	require.NoError(t, r.Resync(context.Background()))

	require.NoError(t, r.SubmitClick(context.Background(), 1))
	assert.Empty(t, backend.claimedNumbers)
}

func TestSubmitChatMessage_RequiresParticipant(t *testing.T) {
	backend := newFakeBackend()

	// sess-x has no participant in the room
	r := NewReconciler(backend, "ABC234", "sess-x", nil)
	require.NoError(t, r.Resync(context.Background()))

	require.NoError(t, r.SubmitChatMessage(context.Background(), "hello"))
	assert.Empty(t, backend.sentChat)
}

func TestHostActionsPassThrough(t *testing.T) {
	backend := newFakeBackend()
	r := NewReconciler(backend, "ABC234", "sess-a", nil)

	require.NoError(t, r.RequestStart(context.Background()))
	require.NoError(t, r.RequestReset(context.Background()))
	assert.Equal(t, 1, backend.startCalls)
	assert.Equal(t, 1, backend.resetCalls)
}

func TestPositions_FollowRoomSeed(t *testing.T) {
	backend := newFakeBackend()
	r := NewReconciler(backend, "ABC234", "sess-a", nil)

	assert.Nil(t, r.Positions(), "no layout before the first sync")

	require.NoError(t, r.Resync(context.Background()))
	first := r.Positions()
	require.Len(t, first, backend.room.MaxNumbers)
	assert.Equal(t, services.Positions("seed-1", 9), first)

	// A reset rotates the seed and with it the layout
	updated := backend.room
	updated.LayoutSeed = "seed-2"
	require.NoError(t, r.Apply(context.Background(), roomEv(updated)))
	assert.NotEqual(t, first, r.Positions())
}
