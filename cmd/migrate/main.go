package main

import (
	"context"
	"fmt"

	"github.com/avessar/authstore/internal/config"
	"github.com/avessar/authstore/internal/logger"
	"github.com/avessar/authstore/internal/migrate"
	"github.com/avessar/authstore/internal/store"
	"github.com/avessar/authstore/migrations"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("authstore-migrate")
	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	log.Debug().Any("config", cfg).Msg("received configs")

	modules := cfg.Migrate.Modules
	if len(modules) == 0 {
		modules = migrations.Allowed()
	}
	for _, module := range modules {
		if !migrations.IsAllowed(module) {
			log.Fatal().Str("module", module).Msg("unknown module")
		}
	}

	ctx := context.Background()
	db, err := store.NewConnectPostgres(ctx, cfg.Storage.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error connecting to database")
	}
	defer db.Close()

	engine := migrate.NewEngine(db.DB, migrations.Files(), log)
	results, err := engine.Run(ctx, modules, cfg.Migrate.Apply)
	if err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	for _, res := range results {
		if !cfg.Migrate.Apply && res.Script != "" {
			fmt.Printf("-- module %s, %d pending\n%s\n", res.Module, res.Applied, res.Script)
			continue
		}
		if res.Applied == 0 {
			fmt.Printf("module %s: up to date\n", res.Module)
			continue
		}
		fmt.Printf("module %s: applied %d, now at %s\n",
			res.Module, res.Applied, res.Version.Format("20060102150405"))
	}
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}

	if buildDate == "" {
		buildDate = "N/A"
	}

	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
