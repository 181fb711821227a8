// Command server runs the earthquake notification backend: both telegram
// feeds, the scheduling loops, and the HTTP API, in one process.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hkawai/go-quake-backend/internal/config"
	"github.com/hkawai/go-quake-backend/internal/dmdata"
	httpapi "github.com/hkawai/go-quake-backend/internal/http"
	"github.com/hkawai/go-quake-backend/internal/normalizer"
	"github.com/hkawai/go-quake-backend/internal/observability"
	"github.com/hkawai/go-quake-backend/internal/repo"
	"github.com/hkawai/go-quake-backend/internal/scheduler"
	"github.com/hkawai/go-quake-backend/internal/services"
	"github.com/hkawai/go-quake-backend/internal/slackx"
	"github.com/hkawai/go-quake-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// @title       go-quake-backend API
// @version     1.0
// @description Earthquake telegram ingestion, condition matching, and Slack dispatch backend.
func main() {
	// Local development convenience; absent .env is not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	logger := log.With().Str("service", cfg.OTEL.ServiceName).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTEL.Enabled {
		shutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
		if err != nil {
			logger.Fatal().Err(err).Msg("otel setup failed")
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn().Err(err).Msg("otel shutdown failed")
			}
		}()
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("database migration failed")
	}

	// Pipeline wiring: feeds → normalizer → dedup/persist → match → Slack.
	client := dmdata.NewClient(cfg.Provider.APIBaseURL, cfg.Provider.APIKey,
		dmdata.WithTelegramType(cfg.Provider.TelegramType))
	socket := dmdata.NewSocket(cfg.Provider.SocketURL, []string{"telegram.earthquake"}, logger)

	dispatcher := &services.DispatchService{
		DB:       db,
		Notifier: slackx.NewWebAPI(),
		Key:      cfg.TokenKey,
		Log:      logger,
	}
	ingest := services.NewIngestService(db, normalizer.New(nil), dispatcher, logger)
	health := services.NewHealthService(db)

	sched := scheduler.New(socket, client, ingest, health, logger)
	sched.CronSpec = cfg.Feed.CronSpec
	sched.FallbackInterval = cfg.Feed.FallbackInterval

	go socket.Run(ctx)
	if err := sched.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("scheduler start failed")
	}

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, httpapi.Deps{
		DB:     db,
		Puller: sched,
		Ingest: ingest,
		Health: health,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
}
