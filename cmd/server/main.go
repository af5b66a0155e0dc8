package main

import (
	"context"

	"github.com/sparkmatch/engine/internal/app"
	"github.com/sparkmatch/engine/internal/cache"
	"github.com/sparkmatch/engine/internal/config"
	"github.com/sparkmatch/engine/internal/db"
	"github.com/sparkmatch/engine/internal/logger"
	"github.com/sparkmatch/engine/internal/server"
	"github.com/sparkmatch/engine/internal/service/discover"
	"github.com/sparkmatch/engine/internal/service/swipes"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// A misconfigured engine refuses to boot.
	if err := cfg.Engine.Validate(); err != nil {
		log.Error("invalid engine config", "err", err)
		return
	}

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

	appCtx := app.New(database, redisCache, log, cfg.Engine)

	swipeSvc := swipes.NewService(appCtx)
	discoverSvc, err := discover.NewService(appCtx)
	if err != nil {
		log.Error("failed to init discovery", "err", err)
		return
	}

	srv := server.New(appCtx, swipeSvc, discoverSvc)
	if err := server.Start(cfg, srv); err != nil {
		log.Error("failed to start http server", "err", err)
	}
}
