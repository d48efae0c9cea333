package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Dave1206/Memory-App-sub000/internal/cache"
	"github.com/Dave1206/Memory-App-sub000/internal/config"
	"github.com/Dave1206/Memory-App-sub000/internal/consumer"
	"github.com/Dave1206/Memory-App-sub000/internal/domain"
	"github.com/Dave1206/Memory-App-sub000/internal/handler"
	"github.com/Dave1206/Memory-App-sub000/internal/hub"
	"github.com/Dave1206/Memory-App-sub000/internal/presence"
	"github.com/Dave1206/Memory-App-sub000/internal/repository"
	"github.com/Dave1206/Memory-App-sub000/internal/service"
	"github.com/Dave1206/Memory-App-sub000/pkg/database"
	"github.com/Dave1206/Memory-App-sub000/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	l := log.L()
	l.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting realtime core")

	db, err := database.New(&cfg.Database)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db,
		&domain.User{},
		&domain.Conversation{},
		&domain.ConversationMember{},
		&domain.Message{},
		&domain.SeenStatus{},
		&domain.Friendship{},
		&domain.Notification{},
	); err != nil {
		l.Fatal().Err(err).Msg("failed to run migrations")
	}

	chatRepo := repository.NewGormChatRepository(db)
	notifRepo := repository.NewGormNotificationRepository(db)
	socialRepo := repository.NewGormSocialRepository(db)

	msgCache, err := cache.NewRedisMessageCache(cfg.Redis, "history")
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect history cache")
	}
	defer msgCache.Close()

	registry := hub.NewRegistry()
	defer registry.Close()

	chatSvc := service.NewChatService(chatRepo, socialRepo, registry)
	historySvc := service.NewHistoryService(chatRepo, msgCache, cfg.History)
	notifySvc := service.NewNotificationService(notifRepo, socialRepo, registry)

	// Presence predicate: in-memory registry by default, redis session
	// liveness when configured (survives restarts, works across instances).
	var online presence.OnlineChecker = presence.NewRegistryChecker(registry)
	var sessions handler.SessionTracker
	if cfg.Presence.Mode == "sessions" {
		redisSessions, err := presence.NewRedisSessions(cfg.Redis, cfg.Presence.SessionTTL)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to connect session store")
		}
		defer redisSessions.Close()
		online = redisSessions
		sessions = redisSessions
	}

	onOffline := notifySvc.UserOffline
	if sessions != nil {
		tracker := sessions
		onOffline = func(userID uint) {
			removeCtx, removeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer removeCancel()
			if err := tracker.Remove(removeCtx, userID); err != nil {
				lw := log.L()
				lw.Warn().Err(err).Uint64(log.FieldUserID, uint64(userID)).Msg("failed to remove session")
			}
			notifySvc.UserOffline(userID)
		}
	}
	registry.SetPresenceHooks(notifySvc.UserOnline, onOffline)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := consumer.NewConfluentConsumer(cfg.Kafka, notifySvc)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create domain event consumer")
	}
	if err := events.Start(ctx); err != nil {
		l.Fatal().Err(err).Msg("failed to start domain event consumer")
	}
	defer events.Close()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(log.GinMiddleware(l))

	handler.NewWSHandler(registry, chatSvc, sessions, cfg.WebSocket).RegisterRoutes(r)
	handler.NewHTTPHandler(chatSvc, historySvc, notifySvc, online).RegisterRoutes(r)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		l.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Warn().Err(err).Msg("server forced to shutdown")
	}

	l.Info().Msg("stopped")
}
