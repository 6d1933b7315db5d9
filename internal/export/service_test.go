package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/tbourn/go-receipt-service/internal/domain"
)

type stubLister struct {
	recs     []domain.ReceiptRecord
	err      error
	from, to time.Time
}

func (s *stubLister) List(_ context.Context, from, to time.Time) ([]domain.ReceiptRecord, error) {
	s.from, s.to = from, to
	return s.recs, s.err
}

func TestReceiptsXLSX_WritesHeaderAndRows(t *testing.T) {
	created := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	l := &stubLister{recs: []domain.ReceiptRecord{
		{ID: "AGR-1-AAAAAA", Name: "Ana", Email: "ana@example.com", Emailed: true, SizeBytes: 1234, URL: "/receipts/1-AGR-1-AAAAAA.pdf", CreatedAt: created},
		{ID: "AGR-2-BBBBBB", Name: "Bo", Email: "bo@example.com", URL: "/receipts/2-AGR-2-BBBBBB.pdf", CreatedAt: created},
	}}

	out, err := NewService(l, zerolog.Nop()).ReceiptsXLSX(context.Background(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ReceiptsXLSX: %v", err)
	}
	if !l.from.IsZero() || !l.to.IsZero() {
		t.Fatalf("open bounds expected, got %v %v", l.from, l.to)
	}

	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 1 || got[0] != SheetName {
		t.Fatalf("sheets = %v", got)
	}
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("want header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Receipt ID" || rows[0][6] != "URL" {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[1][0] != "AGR-1-AAAAAA" || rows[1][1] != "2025-06-01T10:30:00Z" || rows[1][4] != "yes" || rows[1][5] != "1234" {
		t.Fatalf("row 1 = %v", rows[1])
	}
	if rows[2][4] != "no" {
		t.Fatalf("row 2 emailed = %q", rows[2][4])
	}
}

func TestReceiptsXLSX_DayBounds(t *testing.T) {
	l := &stubLister{}
	from := time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC)

	if _, err := NewService(l, zerolog.Nop()).ReceiptsXLSX(context.Background(), from, to); err != nil {
		t.Fatalf("ReceiptsXLSX: %v", err)
	}
	if !l.from.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("from = %v", l.from)
	}
	if !l.to.Equal(time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("to should include the whole last day, got %v", l.to)
	}
}

func TestReceiptsXLSX_ListError(t *testing.T) {
	boom := errors.New("db down")
	_, err := NewService(&stubLister{err: boom}, zerolog.Nop()).ReceiptsXLSX(context.Background(), time.Time{}, time.Time{})
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped list error, got %v", err)
	}
}
