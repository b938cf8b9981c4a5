package main

import (
	"context"

	"github.com/kindredapp/engine/internal/app"
	"github.com/kindredapp/engine/internal/cache"
	"github.com/kindredapp/engine/internal/config"
	"github.com/kindredapp/engine/internal/db"
	"github.com/kindredapp/engine/internal/logger"
	"github.com/kindredapp/engine/internal/realtime"
	"github.com/kindredapp/engine/internal/server"
	"github.com/kindredapp/engine/internal/service/chat"
	"github.com/kindredapp/engine/internal/service/discover"
	"github.com/kindredapp/engine/internal/service/relationship"
	"github.com/kindredapp/engine/internal/service/social"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L() // slog.Logger pointer

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	// Realtime: notifier publishes per-user events, hub fans them out to
	// connected websockets on this instance.
	notifier := realtime.NewNotifier(redisCache.Client, log)
	hub := realtime.NewHub(log)
	if err := hub.StartWiring(context.Background(), notifier); err != nil {
		log.Error("failed to start realtime wiring", "err", err)
		return
	}

	// Inject shared dependencies into app context
	appCtx := app.New(database, redisCache, notifier, log)

	registrars := []server.Registrar{
		discover.NewRegistrar(appCtx),
		relationship.NewRegistrar(appCtx),
		chat.NewRegistrar(appCtx),
		social.NewRegistrar(appCtx),
		realtime.NewRegistrar(hub),
	}

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", addr)

	if err := server.StartHTTPServer(cfg, registrars...); err != nil {
		log.Error("failed to start HTTP server", "err", err)
	}
}
