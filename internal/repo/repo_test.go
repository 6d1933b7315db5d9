package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-receipt-service/internal/domain"
)

// newTestDB returns an isolated in-memory database with the index migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestOpenSQLite_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "nested", "receipts.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file not created: %v", err)
	}
}

func TestOpenSQLite_ErrorWhenParentIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	db, err := OpenSQLite(filepath.Join(file, "receipts.db"))
	if err == nil || db != nil {
		t.Fatalf("expected error, got db=%v err=%v", db, err)
	}
}

func TestSqliteDSN(t *testing.T) {
	got := sqliteDSN("data/r.db")
	want := "data/r.db?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	if got != want {
		t.Fatalf("sqliteDSN = %q", got)
	}
	if got := sqliteDSN("file:x?mode=memory"); !strings.HasPrefix(got, "file:x?mode=memory&_pragma=") {
		t.Fatalf("sqliteDSN with query = %q", got)
	}
}

func TestOpenSQLite_FileDB_AndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	var mode string
	if err := db.Raw("PRAGMA journal_mode;").Row().Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	if !db.Migrator().HasTable(&domain.ReceiptRecord{}) || !db.Migrator().HasTable(&domain.Idempotency{}) {
		t.Fatalf("expected receipts and idempotency tables")
	}
}

func TestReceipts_CreateGetListCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"AGR-1-AAAAAA", "AGR-2-BBBBBB", "AGR-3-CCCCCC"} {
		rec := &domain.ReceiptRecord{
			ID:        id,
			Filename:  fmt.Sprintf("%d-%s.pdf", i, id),
			Name:      "Ana",
			Email:     "a@b.com",
			SizeBytes: 1024,
			URL:       "/receipts/" + id,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := CreateReceipt(ctx, db, rec); err != nil {
			t.Fatalf("CreateReceipt(%s): %v", id, err)
		}
	}

	got, err := GetReceipt(ctx, db, "AGR-2-BBBBBB")
	if err != nil {
		t.Fatalf("GetReceipt: %v", err)
	}
	if got.Filename != "1-AGR-2-BBBBBB.pdf" || got.Email != "a@b.com" {
		t.Fatalf("unexpected row: %+v", got)
	}

	if _, err := GetReceipt(ctx, db, "AGR-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	all, err := ListReceipts(ctx, db, time.Time{}, time.Time{})
	if err != nil || len(all) != 3 {
		t.Fatalf("ListReceipts all: n=%d err=%v", len(all), err)
	}
	if all[0].ID != "AGR-1-AAAAAA" || all[2].ID != "AGR-3-CCCCCC" {
		t.Fatalf("unexpected order: %s..%s", all[0].ID, all[2].ID)
	}

	window, err := ListReceipts(ctx, db, base.Add(time.Hour), base.Add(2*time.Hour))
	if err != nil || len(window) != 1 || window[0].ID != "AGR-2-BBBBBB" {
		t.Fatalf("ListReceipts window: %+v err=%v", window, err)
	}

	n, err := CountReceipts(ctx, db)
	if err != nil || n != 3 {
		t.Fatalf("CountReceipts = %d, %v", n, err)
	}
}

func TestCreateReceipt_DefaultsCreatedAt(t *testing.T) {
	db := newTestDB(t)
	rec := &domain.ReceiptRecord{ID: "AGR-9-ZZZZZZ", Filename: "9.pdf", Name: "n", Email: "e", URL: "/r/9.pdf"}
	if err := CreateReceipt(context.Background(), db, rec); err != nil {
		t.Fatalf("CreateReceipt: %v", err)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt should be set")
	}
}

func TestIdempotency_CreateGetExpireDuplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := GetIdempotency(ctx, db, "ip:1.2.3.4", "receipts", "  ", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blank key should be ErrNotFound, got %v", err)
	}

	rec, err := CreateIdempotency(ctx, db, "ip:1.2.3.4", "receipts", "k1", "AGR-1-AAAAAA", 200, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ID == "" || !rec.ExpiresAt.After(rec.CreatedAt) {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "ip:1.2.3.4", "receipts", "k1", time.Now().UTC())
	if err != nil || got.ReceiptID != "AGR-1-AAAAAA" {
		t.Fatalf("GetIdempotency: %+v err=%v", got, err)
	}

	// Other client, same key: isolated.
	if _, err := GetIdempotency(ctx, db, "ip:5.6.7.8", "receipts", "k1", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other client, got %v", err)
	}

	// Past expiry.
	if _, err := GetIdempotency(ctx, db, "ip:1.2.3.4", "receipts", "k1", time.Now().Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}

	if _, err := CreateIdempotency(ctx, db, "ip:1.2.3.4", "receipts", "k1", "AGR-2-BBBBBB", 200, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	got, _ = GetIdempotency(ctx, db, "ip:1.2.3.4", "receipts", "k1", time.Now().UTC())
	if got == nil || got.ReceiptID != "AGR-1-AAAAAA" {
		t.Fatalf("live record must keep the first receipt, got %+v", got)
	}
}

func TestIdempotency_ExpiredRecordIsReplaced(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "c", "s", "k", "AGR-1-AAAAAA", 200, -time.Minute); err != nil {
		t.Fatalf("create expired: %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, "c", "s", "k", "AGR-2-BBBBBB", 200, time.Hour); err != nil {
		t.Fatalf("re-create over expired row: %v", err)
	}
	got, err := GetIdempotency(ctx, db, "c", "s", "k", time.Now().UTC())
	if err != nil || got.ReceiptID != "AGR-2-BBBBBB" {
		t.Fatalf("GetIdempotency = %+v, %v", got, err)
	}
	var n int64
	db.Model(&domain.Idempotency{}).Count(&n)
	if n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}

func TestPurgeIdempotency(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, _ = CreateIdempotency(ctx, db, "c", "s", "old", "AGR-1-AAAAAA", 200, -time.Minute)
	_, _ = CreateIdempotency(ctx, db, "c", "s", "live", "AGR-2-BBBBBB", 200, time.Hour)

	n, err := PurgeIdempotency(ctx, db, time.Now().UTC())
	if err != nil || n != 1 {
		t.Fatalf("PurgeIdempotency = %d, %v", n, err)
	}
	if _, err := GetIdempotency(ctx, db, "c", "s", "live", time.Now().UTC()); err != nil {
		t.Fatalf("live record purged: %v", err)
	}
}
