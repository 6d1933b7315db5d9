// Package cli implements receiptctl, the operator command line for the
// receipt service. Commands run the same receipt workflow as the HTTP server
// against the configured storage, index database and mail backend.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-receipt-service/internal/config"
	"github.com/tbourn/go-receipt-service/internal/mail"
	"github.com/tbourn/go-receipt-service/internal/pdf"
	"github.com/tbourn/go-receipt-service/internal/repo"
	"github.com/tbourn/go-receipt-service/internal/services"
	"github.com/tbourn/go-receipt-service/internal/storage"
)

// Runtime is everything a command may touch.
type Runtime struct {
	Config   config.Config
	DB       *gorm.DB
	Store    storage.Store
	Renderer pdf.Renderer
	Sender   mail.Sender
	Receipts *services.ReceiptService
	Log      zerolog.Logger
}

// Opener builds the Runtime lazily, so --help never touches the database.
type Opener func() (*Runtime, error)

// NewRuntime opens the index database and builds the receipt workflow from cfg.
func NewRuntime(cfg config.Config, log zerolog.Logger) (*Runtime, error) {
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	store, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, err
	}
	renderer, err := pdf.New(cfg.PDF)
	if err != nil {
		return nil, err
	}
	sender := mail.New(cfg.Mail)

	return &Runtime{
		Config:   cfg,
		DB:       db,
		Store:    store,
		Renderer: renderer,
		Sender:   sender,
		Receipts: services.NewReceiptService(&cfg, renderer, store, sender, db, log),
		Log:      log,
	}, nil
}

// Close releases the database handle.
func (rt *Runtime) Close() error {
	if rt == nil || rt.DB == nil {
		return nil
	}
	sqlDB, err := rt.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
