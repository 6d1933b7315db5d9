// Command server runs the appointment receipt HTTP service.
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
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-receipt-service/internal/config"
	httpapi "github.com/tbourn/go-receipt-service/internal/http"
	"github.com/tbourn/go-receipt-service/internal/mail"
	"github.com/tbourn/go-receipt-service/internal/observability"
	"github.com/tbourn/go-receipt-service/internal/pdf"
	"github.com/tbourn/go-receipt-service/internal/repo"
	"github.com/tbourn/go-receipt-service/internal/services"
	"github.com/tbourn/go-receipt-service/internal/storage"
	"github.com/tbourn/go-receipt-service/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	logger := sysutil.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.Setup(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open db")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate db")
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("storage")
	}
	if err := store.EnsureDir(ctx); err != nil {
		log.Fatal().Err(err).Msg("receipt storage is not writable")
	}
	renderer, err := pdf.New(cfg.PDF)
	if err != nil {
		log.Fatal().Err(err).Msg("pdf renderer")
	}
	sender := mail.New(cfg.Mail)

	receipts := services.NewReceiptService(&cfg, renderer, store, sender, db, logger.With().Str("component", "receipts").Logger())
	appts := &services.AppointmentService{
		Path: cfg.AppointmentsFile,
		Log:  logger.With().Str("component", "appointments").Logger(),
	}

	go purgeIdempotency(ctx, db)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Services{
		DB:           db,
		Receipts:     receipts,
		Files:        store,
		Appointments: appts,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("storage", cfg.Storage.Backend).
			Str("pdf_engine", cfg.PDF.Engine).
			Str("mail", mail.Backend(cfg.Mail)).
			Str("version", version).
			Msg("receipt service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server stopped gracefully")
}

// purgeIdempotency drops expired Idempotency-Key records once an hour until
// ctx is cancelled.
func purgeIdempotency(ctx context.Context, db *gorm.DB) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("rows", n).Msg("expired idempotency records purged")
			}
		}
	}
}
