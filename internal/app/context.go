package app

import (
	"log/slog"

	"github.com/kindredapp/engine/internal/cache"
	"github.com/kindredapp/engine/internal/realtime"
	"gorm.io/gorm"
)

// AppContext holds shared dependencies (DB, Redis, Notifier, Logger, etc.)
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Notifier   *realtime.Notifier
	Logger     *slog.Logger
}

// New creates a new AppContext
func New(db *gorm.DB, rdb *cache.RedisCache, notifier *realtime.Notifier, logger *slog.Logger) *AppContext {
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Notifier:   notifier,
		Logger:     logger,
	}
}
