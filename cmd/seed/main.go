// Seeds the database with deterministic test data for local
// development. Destructive: clears engine tables first.
package main

import (
	"github.com/sparkmatch/engine/internal/config"
	"github.com/sparkmatch/engine/internal/db"
	"github.com/sparkmatch/engine/internal/logger"
)

func main() {
	cfg := config.New()

	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	if err := db.SeedTestData(database); err != nil {
		log.Error("failed to seed", "err", err)
		return
	}

	log.Info("seed complete")
}
