package handlers

import (
	"errors"
	"net/http"

	"fasteyes/middleware"
	"fasteyes/services"

	"github.com/gin-gonic/gin"
)

type GameHandler struct {
	games *services.GameService
	rooms *services.RoomService
}

func NewGameHandler(games *services.GameService, rooms *services.RoomService) *GameHandler {
	return &GameHandler{games: games, rooms: rooms}
}

type ClaimRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
	Number        int    `json:"number" binding:"required"`
}

func (h *GameHandler) StartGame(c *gin.Context) {
	sessionID := c.GetString(middleware.SessionIDKey)

	room, err := h.rooms.GetRoomByCode(c.Param("code"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	if err := h.games.StartGame(room.ID, sessionID); err != nil {
		respondGuardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ClaimNumber is the only write path for scores and the current target.
// A rejection is a normal outcome (the caller lost the race) and comes
// back as accepted=false with HTTP 200, never as an error.
func (h *GameHandler) ClaimNumber(c *gin.Context) {
	sessionID := c.GetString(middleware.SessionIDKey)

	room, err := h.rooms.GetRoomByCode(c.Param("code"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.games.ClaimNumber(room.ID, req.ParticipantID, req.Number, sessionID)
	if err != nil {
		respondGuardError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *GameHandler) ResetGame(c *gin.Context) {
	sessionID := c.GetString(middleware.SessionIDKey)

	room, err := h.rooms.GetRoomByCode(c.Param("code"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	if err := h.games.ResetGame(room.ID, sessionID); err != nil {
		respondGuardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func respondGuardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
	case errors.Is(err, services.ErrNotHost), errors.Is(err, services.ErrSessionMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrParticipantNotFound),
		errors.Is(err, services.ErrNotEnoughPlayers),
		errors.Is(err, services.ErrGameInProgress),
		errors.Is(err, services.ErrGameNotStarted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
