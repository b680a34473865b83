package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper: receive one payload with a timeout so tests never hang
func recvPayload(t *testing.T, ch <-chan []byte, within time.Duration) []byte {
	t.Helper()
	select {
	case data, ok := <-ch:
		if !ok {
			t.Fatalf("client send channel closed unexpectedly")
		}
		return data
	case <-time.After(within):
		t.Fatalf("timed out waiting for broadcast")
		return nil // unreachable
	}
}

func recvNoPayload(t *testing.T, ch <-chan []byte, within time.Duration) {
	t.Helper()
	select {
	case data, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no broadcast within %v, but got: %s", within, data)
	case <-time.After(within):
	}
}

func newHubClient(h *Hub, roomID string) *Client {
	c := &Client{
		hub:    h,
		id:     "test-" + roomID,
		send:   make(chan []byte, 4),
		roomID: roomID,
	}
	h.register <- c
	return c
}

func TestHub_BroadcastIsScopedToRoom(t *testing.T) {
	h := NewHub(nil)
	go h.Run()

	roomA := newHubClient(h, "room-a")
	roomA2 := newHubClient(h, "room-a")
	roomB := newHubClient(h, "room-b")

	h.BroadcastToRoom("room-a", participantEvent("room-a"))

	for _, c := range []*Client{roomA, roomA2} {
		data := recvPayload(t, c.send, 100*time.Millisecond)
		var event ChangeEvent
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, EventKindParticipant, event.Kind)
		assert.Equal(t, "room-a", event.RoomID)
	}

	recvNoPayload(t, roomB.send, 50*time.Millisecond)
}

func TestHub_UnregisteredClientStopsReceiving(t *testing.T) {
	h := NewHub(nil)
	go h.Run()

	c := newHubClient(h, "room-a")
	h.unregister <- c

	h.BroadcastToRoom("room-a", participantEvent("room-a"))
	recvNoPayload(t, c.send, 50*time.Millisecond)
}

func TestRoomIDFromChannel(t *testing.T) {
	assert.Equal(t, "abc-123", roomIDFromChannel("room:abc-123:events"))
	assert.Empty(t, roomIDFromChannel("otherprefix:abc:events"))
	assert.Empty(t, roomIDFromChannel("room:abc"))
}
