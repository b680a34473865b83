package handlers

import (
	"errors"
	"net/http"

	"fasteyes/middleware"
	"fasteyes/services"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	rooms *services.RoomService
	chat  *services.ChatService
}

func NewRoomHandler(rooms *services.RoomService, chat *services.ChatService) *RoomHandler {
	return &RoomHandler{rooms: rooms, chat: chat}
}

type CreateRoomRequest struct {
	Name       string `json:"name" binding:"required"`
	MaxNumbers int    `json:"max_numbers" binding:"required"`
}

type JoinRoomRequest struct {
	Name string `json:"name"`
}

type PostChatRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
	Text          string `json:"text" binding:"required"`
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	sessionID := c.GetString(middleware.SessionIDKey)

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, host, err := h.rooms.CreateRoom(req.Name, req.MaxNumbers, sessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"room": room, "participant": host})
}

func (h *RoomHandler) JoinRoom(c *gin.Context) {
	sessionID := c.GetString(middleware.SessionIDKey)

	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, participant, err := h.rooms.JoinRoom(c.Param("code"), req.Name, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		case errors.Is(err, services.ErrRoomFull), errors.Is(err, services.ErrGameInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room, "participant": participant})
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.rooms.GetRoomByCode(c.Param("code"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) GetParticipants(c *gin.Context) {
	room, err := h.rooms.GetRoomByCode(c.Param("code"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	participants, err := h.rooms.ListParticipants(room.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, participants)
}

func (h *RoomHandler) GetClaims(c *gin.Context) {
	room, err := h.rooms.GetRoomByCode(c.Param("code"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	claims, err := h.rooms.ListClaims(room.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, claims)
}

func (h *RoomHandler) GetChat(c *gin.Context) {
	room, err := h.rooms.GetRoomByCode(c.Param("code"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	messages, err := h.chat.History(room.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, messages)
}

func (h *RoomHandler) PostChat(c *gin.Context) {
	room, err := h.rooms.GetRoomByCode(c.Param("code"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	var req PostChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.chat.Post(room.ID, req.ParticipantID, req.Text)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, message)
}
