package routes

import (
	"net/http"

	"fasteyes/handlers"
	"fasteyes/middleware"
	"fasteyes/services"
	"fasteyes/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	sessionHandler *handlers.SessionHandler,
	roomHandler *handlers.RoomHandler,
	gameHandler *handlers.GameHandler,
	hub *services.Hub,
	roomService *services.RoomService,
	sessionService *services.SessionService,
) {
	api := router.Group("/api")
	{
		api.POST("/session", sessionHandler.CreateSession)

		// Snapshot reads, open to anyone with the room code
		rooms := api.Group("/rooms")
		{
			rooms.GET("/:code", roomHandler.GetRoom)
			rooms.GET("/:code/participants", roomHandler.GetParticipants)
			rooms.GET("/:code/claims", roomHandler.GetClaims)
			rooms.GET("/:code/chat", roomHandler.GetChat)
		}

		// Mutations require a session token
		protected := api.Group("/rooms")
		protected.Use(middleware.Session(sessionService))
		{
			protected.POST("", roomHandler.CreateRoom)
			protected.POST("/:code/join", roomHandler.JoinRoom)
			protected.POST("/:code/start", gameHandler.StartGame)
			protected.POST("/:code/claim", gameHandler.ClaimNumber)
			protected.POST("/:code/reset", gameHandler.ResetGame)
			protected.POST("/:code/chat", roomHandler.PostChat)
		}
	}

	// WebSocket change feed, one subscription per room
	router.GET("/ws/:code", func(c *gin.Context) {
		room, err := roomService.GetRoomByCode(c.Param("code"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("WebSocket upgrade failed for room %s: %v", room.Code, err)
			return
		}

		hub.RegisterClient(conn, room.ID)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
