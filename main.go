package main

import (
	"context"

	"fasteyes/config"
	"fasteyes/handlers"
	"fasteyes/middleware"
	"fasteyes/models"
	"fasteyes/routes"
	"fasteyes/services"
	"fasteyes/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, reading environment variables")
	}

	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.Room{},
		&models.Participant{},
		&models.Claim{},
		&models.ChatMessage{},
	)
	if err != nil {
		logger.Log.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize redis (change-event transport)
	redisClient := config.InitRedis(cfg)

	// Initialize services
	events := services.NewRedisPublisher(redisClient)
	sessionService := services.NewSessionService(cfg.SessionSecret)
	chatService := services.NewChatService(db, events)
	roomService := services.NewRoomService(db, events, chatService)
	gameService := services.NewGameService(db, events, chatService)

	// Initialize WebSocket hub fed by the redis change feed
	hub := services.NewHub(redisClient)
	go hub.Run()
	go hub.ListenEvents(context.Background())

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(sessionService)
	roomHandler := handlers.NewRoomHandler(roomService, chatService)
	gameHandler := handlers.NewGameHandler(gameService, roomService)

	// Setup Gin router
	router := gin.Default()
	router.Use(middleware.CORS(cfg.AllowOrigin))

	routes.SetupRoutes(router, sessionHandler, roomHandler, gameHandler, hub, roomService, sessionService)

	// Start server
	logger.Infof("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
