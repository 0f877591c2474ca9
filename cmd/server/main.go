package main

import (
	"context"
	"log"
	"os"

	"github.com/arisehq/levelup/internal/bootstrap"
	"github.com/arisehq/levelup/internal/config"
	"github.com/arisehq/levelup/internal/repository"
	"github.com/arisehq/levelup/internal/server"
	"github.com/arisehq/levelup/pkg/database"
	"github.com/arisehq/levelup/pkg/storage"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	db := database.Connect()

	if err := bootstrap.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	badgeRepo := repository.NewBadgeRepository(db)

	var images storage.ImageStorage
	if cfg.CloudinaryCloudName != "" {
		images, err = storage.NewCloudinaryStorage()
		if err != nil {
			log.Printf("cloudinary unavailable, badge icons keep symbolic names: %v", err)
		}
	}
	if err := bootstrap.SeedBadges(context.Background(), badgeRepo, images, os.Getenv("BADGE_ICON_DIR")); err != nil {
		log.Fatalf("failed to seed badges: %v", err)
	}

	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedDevUser(db); err != nil {
			log.Fatalf("failed to seed dev user: %v", err)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
	}

	srv := server.NewServer(cfg, db, redisClient)

	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}
