package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"vidsense/config"
	"vidsense/database"
	"vidsense/handlers"
	"vidsense/logger"
	"vidsense/middleware"
	"vidsense/models"
	"vidsense/realtime"
	"vidsense/repositories"
	"vidsense/services"

	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("starting vidsense service")

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	logger.SetLevel(cfg.Log.Level)

	if err := database.InitMySQL(&cfg.Database); err != nil {
		log.Fatalf("init mysql failed: %v", err)
	}

	database.DB.AutoMigrate(
		&models.User{},
		&models.Video{},
	)
	log.Println("database migration completed")

	if err := database.InitRedis(&cfg.Redis); err != nil {
		log.Fatalf("init redis failed: %v", err)
	}

	if err := os.MkdirAll(filepath.Join(cfg.Storage.BasePath, "uploads"), 0o755); err != nil {
		log.Fatalf("create uploads dir failed: %v", err)
	}

	repoContainer := repositories.NewGormRepositories(database.DB).BuildContainer()
	notifier := services.NewRedisNotifier(database.RedisClient)
	classifier := services.NewWeightedRandomClassifier(time.Now().UnixNano(), 3, 4)
	serviceContainer := services.NewContainer(repoContainer, notifier, classifier)
	handlers.SetServices(serviceContainer)

	serviceContainer.Processing.Start()
	defer serviceContainer.Processing.Stop()
	log.Println("processing workers started")

	hub := realtime.NewHub(database.RedisClient)
	handlers.SetHub(hub)
	go hub.Run(context.Background())

	r := gin.Default()
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.RequestLogger())
	setupRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("server listening on http://%s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server start failed: %v", err)
	}
}

func setupRoutes(r *gin.Engine) {
	api := r.Group("/api")

	api.GET("/health", handlers.HealthCheck)
	api.GET("/ws", handlers.ConnectEvents)

	auth := api.Group("/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/auth/me", handlers.GetMe)

		protected.POST("/videos/upload", handlers.UploadVideo)
		protected.GET("/videos", handlers.ListVideos)
		protected.GET("/videos/:id", handlers.GetVideo)
		protected.GET("/videos/:id/stream", handlers.StreamVideo)
		protected.DELETE("/videos/:id", handlers.DeleteVideo)
	}
}
