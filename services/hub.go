package services

import (
	"context"
	"encoding/json"
	"strings"

	"fasteyes/utils/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

type broadcastMessage struct {
	roomID string
	data   []byte
}

// Hub fans the change feed out to every websocket client in a room. It
// does not originate events itself: services publish to redis, the hub
// subscribes to every room channel and forwards payloads verbatim, so
// clients behind any app instance see the same feed.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan broadcastMessage
	register   chan *Client
	unregister chan *Client
	rdb        *redis.Client
}

type Client struct {
	hub    *Hub
	id     string
	socket *websocket.Conn
	send   chan []byte
	roomID string
}

func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan broadcastMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rdb:        rdb,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			logger.Debugf("Client %s subscribed to room %s (total clients: %d)", client.id, client.roomID, len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				logger.Debugf("Client %s left room %s (total clients: %d)", client.id, client.roomID, len(h.clients))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				if client.roomID != message.roomID {
					continue
				}
				select {
				case client.send <- message.data:
				default:
					// Slow consumer; it will resync on reconnect.
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// ListenEvents pumps the redis change feed into the hub until ctx is
// cancelled. Run it in its own goroutine next to Run.
func (h *Hub) ListenEvents(ctx context.Context) {
	pubsub := h.rdb.PSubscribe(ctx, RoomChannelPattern)
	defer pubsub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			roomID := roomIDFromChannel(msg.Channel)
			if roomID == "" {
				continue
			}
			h.broadcast <- broadcastMessage{roomID: roomID, data: []byte(msg.Payload)}
		}
	}
}

func roomIDFromChannel(channel string) string {
	parts := strings.Split(channel, ":")
	if len(parts) != 3 || parts[0] != "room" || parts[2] != "events" {
		return ""
	}
	return parts[1]
}

// BroadcastToRoom injects an event for one room's clients. The redis
// listener is the normal source; this exists for single-process setups
// and tests.
func (h *Hub) BroadcastToRoom(roomID string, event ChangeEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("Error marshaling %s event for room %s: %v", event.Kind, roomID, err)
		return
	}
	h.broadcast <- broadcastMessage{roomID: roomID, data: data}
}

func (h *Hub) RegisterClient(conn *websocket.Conn, roomID string) *Client {
	client := &Client{
		hub:    h,
		id:     uuid.NewString(),
		socket: conn,
		send:   make(chan []byte, 256),
		roomID: roomID,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debugf("WebSocket read error: %v", err)
			}
			break
		}

		// Clients mutate state over REST, never the socket; the only
		// inbound message is a keepalive ping.
		var msg map[string]any
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg["type"] == "ping" {
			data, _ := json.Marshal(map[string]string{"type": "pong"})
			select {
			case c.send <- data:
			default:
			}
		}
	}
}

func (c *Client) writePump() {
	defer c.socket.Close()

	for message := range c.send {
		w, err := c.socket.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)
		if err := w.Close(); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}
