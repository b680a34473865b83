package handlers

import (
	"net/http"

	"fasteyes/services"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessions *services.SessionService
}

func NewSessionHandler(sessions *services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// CreateSession mints an anonymous session. Clients keep the token per
// tab; the embedded session ID is what ties them to a participant record
// across reconnects.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	sessionID, token, err := h.sessions.Issue()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": sessionID,
		"token":      token,
	})
}
