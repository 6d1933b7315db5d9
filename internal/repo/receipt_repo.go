// Package repo implements the receipt index persistence layer, backed by GORM.
// This file provides repository functions for ReceiptRecord rows.
//
// The repository is thin: it performs persistence and query composition and
// leaves the receipt lifecycle rules to the services package.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-receipt-service/internal/domain"
)

// CreateReceipt inserts an index row for a persisted receipt.
func CreateReceipt(ctx context.Context, db *gorm.DB, rec *domain.ReceiptRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(rec).Error
}

// GetReceipt fetches a receipt row by id, or ErrNotFound.
func GetReceipt(ctx context.Context, db *gorm.DB, id string) (*domain.ReceiptRecord, error) {
	var rec domain.ReceiptRecord
	err := db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListReceipts returns receipts created in [from, to) ordered by creation
// time (oldest first). Zero bounds are open.
func ListReceipts(ctx context.Context, db *gorm.DB, from, to time.Time) ([]domain.ReceiptRecord, error) {
	q := db.WithContext(ctx).Model(&domain.ReceiptRecord{})
	if !from.IsZero() {
		q = q.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("created_at < ?", to)
	}
	var out []domain.ReceiptRecord
	err := q.Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}

// CountReceipts returns the number of indexed receipts.
func CountReceipts(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.ReceiptRecord{}).Count(&n).Error
	return n, err
}
