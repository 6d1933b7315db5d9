package domain

import (
	"regexp"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestNewReceiptID_AndFilename_ShareTimestamp(t *testing.T) {
	ts := time.UnixMilli(1717236000123)
	id := NewReceiptID(ts, "X7K2QA")
	if id != "AGR-1717236000123-X7K2QA" {
		t.Fatalf("id = %q", id)
	}
	if got := ReceiptFilename(ts, id); got != "1717236000123-AGR-1717236000123-X7K2QA.pdf" {
		t.Fatalf("filename = %q", got)
	}
	if !regexp.MustCompile(`^AGR-\d+-[A-Z0-9]{6}$`).MatchString(id) {
		t.Fatalf("id %q does not match the receipt id format", id)
	}
}

func TestTableNames(t *testing.T) {
	if (ReceiptRecord{}).TableName() != "receipts" {
		t.Fatalf("ReceiptRecord.TableName() = %q", (ReceiptRecord{}).TableName())
	}
	if (Idempotency{}).TableName() != "idempotency" {
		t.Fatalf("Idempotency.TableName() = %q", (Idempotency{}).TableName())
	}
}

func TestMigrations_Indexes(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&ReceiptRecord{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	for _, idx := range []string{"ux_receipt_filename", "idx_receipt_email", "idx_receipt_created"} {
		if !m.HasIndex(&ReceiptRecord{}, idx) {
			t.Fatalf("expected index %s on receipts", idx)
		}
	}
	if !m.HasIndex(&Idempotency{}, "ux_client_scope_key") {
		t.Fatalf("expected unique index ux_client_scope_key on idempotency")
	}

	rec := ReceiptRecord{ID: "AGR-1-AAAAAA", Filename: "1-AGR-1-AAAAAA.pdf", Name: "n", Email: "e", URL: "/receipts/1-AGR-1-AAAAAA.pdf"}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	dup := rec
	dup.ID = "AGR-2-BBBBBB"
	if err := db.Create(&dup).Error; err == nil {
		t.Fatalf("expected unique filename violation")
	}
}
