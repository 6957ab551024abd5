package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/mkarlsen/lightbox/internal/config"
	"github.com/mkarlsen/lightbox/internal/database"
	"github.com/mkarlsen/lightbox/internal/handler"
	"github.com/mkarlsen/lightbox/internal/queue"
	"github.com/mkarlsen/lightbox/internal/repository"
	"github.com/mkarlsen/lightbox/internal/router"
	"github.com/mkarlsen/lightbox/internal/service"
	"github.com/mkarlsen/lightbox/internal/storage"
	"github.com/mkarlsen/lightbox/internal/utils"
)

func main() {
	_ = godotenv.Load() // optional .env for local development

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Print("redis unavailable; response caching disabled")
	}

	store, err := storage.NewObjectStore(context.Background())
	if err != nil {
		log.Fatalf("object store: %v", err)
	}

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	apiKeys := repository.NewAPIKeyRepo(db)
	usage := repository.NewUsageRepo(db)
	albums := repository.NewAlbumRepo(db)
	members := repository.NewMembershipRepo(db)
	photos := repository.NewPhotoRepo(db)
	activity := repository.NewActivityRepo(db)

	secrets := utils.Secrets{Access: cfg.AccessSecret, Refresh: cfg.RefreshSecret, Guest: cfg.GuestSecret}
	accessTTL := time.Duration(cfg.AccessTTLMin) * time.Minute

	refresh := service.NewRefreshService(sessions, secrets, accessTTL, cfg.BcryptCost, queue.PublishActivity)
	keys := service.NewAPIKeyService(apiKeys, cfg.BcryptCost, cfg.MaxActiveKeys, cfg.DefaultMinuteLimit, cfg.DefaultDailyLimit, queue.PublishActivity)
	limiter := service.NewRateLimiter(usage, queue.PublishActivity)
	roles := service.NewRoleResolver(albums, members)

	go func() {
		if err := queue.StartActivityConsumer(activity); err != nil {
			log.Printf("activity consumer stopped: %v", err)
		}
	}()

	// Hourly sweep of expired refresh sessions. Rotation checks expiry
	// itself; this just keeps the table small.
	go func() {
		for {
			time.Sleep(time.Hour)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := sessions.DeleteExpired(ctx, time.Now()); err != nil {
				log.Printf("session sweep: %v", err)
			} else if n > 0 {
				log.Printf("session sweep: removed %d expired sessions", n)
			}
			cancel()
		}
	}()

	e := echo.New()
	router.Register(e, cfg, secrets, refresh, keys, limiter, rdb, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users, refresh),
		APIKeys:  handler.NewAPIKeyHandler(keys),
		Albums:   handler.NewAlbumHandler(albums, roles),
		Guests:   handler.NewGuestHandler(cfg, albums),
		Photos:   handler.NewPhotoHandler(photos, albums, roles, store),
		Activity: handler.NewActivityHandler(activity),
		Public:   handler.NewPublicHandler(albums),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
