// Package export renders the receipt index as an XLSX workbook for the
// clinic's bookkeeping.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/tbourn/go-receipt-service/internal/domain"
)

// SheetName is the worksheet holding the receipt rows.
const SheetName = "Receipts"

// Headers are the column titles of the receipts sheet, in order.
var Headers = []string{"Receipt ID", "Created (UTC)", "Name", "Email", "Emailed", "Size (bytes)", "URL"}

// Lister reads index rows created in [from, to); zero bounds are open.
type Lister interface {
	List(ctx context.Context, from, to time.Time) ([]domain.ReceiptRecord, error)
}

// Service produces XLSX exports of the receipt index.
type Service struct {
	receipts Lister
	log      zerolog.Logger
}

// NewService builds an export Service.
func NewService(l Lister, log zerolog.Logger) *Service {
	return &Service{receipts: l, log: log}
}

// ReceiptsXLSX returns a workbook with one row per receipt created in
// [from, to). Dates are truncated to UTC days; a non-zero to includes that
// whole day.
func (s *Service) ReceiptsXLSX(ctx context.Context, from, to time.Time) ([]byte, error) {
	start := time.Now()

	if !from.IsZero() {
		from = day(from)
	}
	if !to.IsZero() {
		to = day(to).AddDate(0, 0, 1)
	}

	recs, err := s.receipts.List(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet rather than leaving an empty "Sheet1".
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, err
	}

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(SheetName, "A1", "G1", style)
	}

	for i, r := range recs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}
		write(1, r.ID)
		write(2, r.CreatedAt.UTC().Format(time.RFC3339))
		write(3, r.Name)
		write(4, r.Email)
		if r.Emailed {
			write(5, "yes")
		} else {
			write(5, "no")
		}
		write(6, r.SizeBytes)
		write(7, r.URL)
	}

	_ = f.SetColWidth(SheetName, "A", "A", 28) // id
	_ = f.SetColWidth(SheetName, "B", "B", 22) // created
	_ = f.SetColWidth(SheetName, "C", "D", 30) // name, email
	_ = f.SetColWidth(SheetName, "E", "F", 12)
	_ = f.SetColWidth(SheetName, "G", "G", 60) // url
	_ = f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.log.Info().
		Int("rows", len(recs)).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("receipt export written")
	return buf.Bytes(), nil
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
