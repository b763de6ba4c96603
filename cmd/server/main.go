package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/perkpass/perkpass/internal/app"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	migrateOnly := flag.Bool("migrate", false, "run database migrations and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *migrateOnly {
		if errMigrate := app.Migrate(ctx, *configPath); errMigrate != nil {
			log.WithError(errMigrate).Fatal("migration failed")
		}
		log.Info("migration complete")
		return
	}

	if errRun := app.RunServer(ctx, *configPath); errRun != nil {
		log.WithError(errRun).Fatal("server exited")
	}
}
