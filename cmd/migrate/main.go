package main

import (
	"flag"

	"github.com/vchukka/finsense/internal/config"
	"github.com/vchukka/finsense/internal/logger"
	"github.com/vchukka/finsense/internal/store/postgres"
)

func main() {
	var (
		databaseURL = flag.String("database-url", "", "Postgres URL (overrides DATABASE_URL)")
	)
	flag.Parse()

	cfg := config.Load()
	log := logger.NewConsole(cfg.LogLevel)

	if *databaseURL != "" {
		cfg.DatabaseURL = *databaseURL
	}

	log.Info().Msg("Running migrations")

	version, err := postgres.Migrate(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	log.Info().Uint("version", version).Msg("Schema is up to date")
}
