package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/perkpass/perkpass/internal/config"
	"github.com/perkpass/perkpass/internal/db"
	"github.com/perkpass/perkpass/internal/events"
	"github.com/perkpass/perkpass/internal/http/api"
	"github.com/perkpass/perkpass/internal/logging"
	"github.com/perkpass/perkpass/internal/redeem"
	"github.com/perkpass/perkpass/internal/store"
	"github.com/perkpass/perkpass/internal/token"
	"github.com/perkpass/perkpass/internal/vault"
)

// shutdownTimeout bounds how long in-flight requests may drain on exit.
const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, configPath string) error {
	cfg, errLoad := config.Load(config.ResolvePath(configPath))
	if errLoad != nil {
		return errLoad
	}
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	return store.SeedTiers(ctx, conn)
}

// RunServer boots the card API server and blocks until ctx is cancelled.
func RunServer(ctx context.Context, configPath string) error {
	cfg, errLoad := config.Load(config.ResolvePath(configPath))
	if errLoad != nil {
		return errLoad
	}
	logging.Setup(cfg.Log)

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errSeed := store.SeedTiers(ctx, conn); errSeed != nil {
		return errSeed
	}

	v, errVault := vault.NewFromHex(cfg.Vault.Key)
	if errVault != nil {
		return errVault
	}

	publisher := events.NewPublisher(cfg.Redis.Addr, cfg.Redis.Channel)
	if publisher != nil {
		defer publisher.Close()
	}

	svc := redeem.NewService(redeem.Deps{
		Cards:       store.NewCardStore(conn, cfg.Rotation.HistorySize),
		Members:     store.NewMemberStore(conn),
		Merchants:   store.NewMerchantStore(conn),
		Redemptions: store.NewRedemptionStore(conn),
		Vault:       v,
		Tokens:      token.NewGenerator(cfg.Rotation.Window.Std()),
		Events:      publisher,
		Tolerance:   cfg.Rotation.Tolerance,
	})

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api.RegisterRoutes(engine, conn, svc, cfg.JWT)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: engine,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":     cfg.Server.Addr,
			"dialect":  db.DialectName(conn),
			"window":   cfg.Rotation.Window.Std().String(),
			"history":  cfg.Rotation.HistorySize,
			"eventing": publisher != nil,
		}).Info("server starting")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case errServe := <-serveErr:
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return errServe
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return errShutdown
	}
	return nil
}
