package server

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/arisehq/levelup/internal/config"
	"github.com/arisehq/levelup/internal/handler"
	"github.com/arisehq/levelup/internal/middleware"
	"github.com/arisehq/levelup/internal/repository"
	"github.com/arisehq/levelup/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	userRepo := repository.NewUserRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	habitRepo := repository.NewHabitRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	completionRepo := repository.NewCompletionRepository(db)
	resetRepo := repository.NewResetRepository(db)

	// Search is optional; the engine works without an index, the client
	// just loses instant search.
	var searchSvc service.SearchService
	if cfg.MeiliSearchHost != "" {
		meiliHost := cfg.MeiliSearchHost
		if !strings.HasPrefix(meiliHost, "http") {
			meiliHost = "http://" + meiliHost + ":7700"
		}
		meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		searchSvc = service.NewSearchService(meiliClient)
	}

	notificationSvc := service.NewNotificationService(notificationRepo, redisClient)
	badgeSvc := service.NewBadgeService(badgeRepo, notificationSvc)

	goalSvc := service.NewGoalService(goalRepo, completionRepo, badgeSvc, searchSvc, notificationSvc, redisClient, cfg.RateLimitToggle)
	habitSvc := service.NewHabitService(habitRepo, completionRepo, badgeSvc, searchSvc, notificationSvc, redisClient, cfg.RateLimitToggle)
	userSvc := service.NewUserService(userRepo)
	resetSvc := service.NewResetService(resetRepo)

	goalHandler := handler.NewGoalHandler(goalSvc)
	habitHandler := handler.NewHabitHandler(habitSvc)
	userHandler := handler.NewUserHandler(userSvc, badgeSvc)
	searchHandler := handler.NewSearchHandler(searchSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc, redisClient)

	resetSvc.StartScheduler(context.Background(), cfg.ResetInterval)

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	// Tokens are minted by the external auth service; every route below only
	// consumes them.
	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())
	{
		// User routes
		api.GET("/users/me/status", userHandler.GetStatus)
		api.GET("/badges/me", userHandler.GetBadges)

		// Goal routes
		api.POST("/goals", goalHandler.CreateGoal)
		api.GET("/goals", goalHandler.ListGoals)
		api.GET("/goals/:id", goalHandler.GetGoal)
		api.PATCH("/goals/:id", goalHandler.UpdateGoal)
		api.PATCH("/goals/:id/toggle", goalHandler.ToggleGoal)
		api.DELETE("/goals/:id", goalHandler.DeleteGoal)
		api.POST("/goals/:id/steps", goalHandler.AddStep)
		api.PATCH("/steps/:id/toggle", goalHandler.ToggleStep)
		api.PATCH("/steps/:id", goalHandler.RenameStep)
		api.DELETE("/steps/:id", goalHandler.DeleteStep)

		// Habit routes
		api.POST("/habits", habitHandler.CreateHabit)
		api.GET("/habits", habitHandler.ListHabits)
		api.GET("/habits/:id", habitHandler.GetHabit)
		api.PATCH("/habits/:id", habitHandler.UpdateHabit)
		api.PATCH("/habits/:id/toggle", habitHandler.ToggleHabit)
		api.DELETE("/habits/:id", habitHandler.DeleteHabit)
		api.POST("/habits/:id/steps", habitHandler.AddStep)
		api.PATCH("/habits/steps/:id/toggle", habitHandler.ToggleStep)
		api.PATCH("/habits/steps/:id", habitHandler.RenameStep)
		api.DELETE("/habits/steps/:id", habitHandler.DeleteStep)

		// Search routes
		api.GET("/search", searchHandler.Search)

		// Notification routes
		api.GET("/notifications", notificationHandler.GetNotifications)
		api.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		api.PATCH("/notifications/:id/read", notificationHandler.MarkAsRead)
		api.PATCH("/notifications/read-all", notificationHandler.MarkAllAsRead)
	}

	router.GET("/ws/notifications", authMiddleware.RequireAuth(), notificationHandler.HandleWebSocket)

	if redisClient == nil {
		log.Println("Redis not configured, toggle rate limiting and live notifications are disabled")
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
