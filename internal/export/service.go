package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/claims-intake/constants"
	"github.com/joseph-ayodele/claims-intake/internal/entity"
)

const SheetName = "Claims"

// Headers are the column titles of the claims sheet, in order.
var Headers = []string{
	"Filename",
	"Status",
	"Claimant Name",
	"Village",
	"Claim Type",
	"Coordinates",
	"Error",
	"Updated At",
}

type ItemLister interface {
	List(ctx context.Context) ([]entity.IntakeItem, error)
}

// Service produces XLSX bytes for the items of the session.
type Service struct {
	items  ItemLister
	logger *slog.Logger
}

func NewService(items ItemLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{items: items, logger: logger}
}

// ExportItemsXLSX returns a workbook with one row per item in store order.
func (s *Service) ExportItemsXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// rename the default sheet so there is exactly one
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, err
	}
	idx, _ := f.GetSheetIndex(SheetName)
	f.SetActiveSheet(idx)

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(Headers), 1)
		_ = f.SetCellStyle(SheetName, "A1", last, style)
	}

	row := 2
	for _, it := range items {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}

		// 1) Filename 2) Status
		write(1, it.Filename)
		write(2, it.Status.String())

		// 3..6) fields; blank while processing or on error
		if it.Status == constants.ItemStatusCompleted && it.Fields != nil {
			write(3, it.Fields.ClaimantName)
			write(4, it.Fields.Village)
			write(5, it.Fields.ClaimType)
			write(6, it.Fields.Coordinates)
		}

		// 7) Error
		write(7, truncate(it.Error, 140))

		// 8) Updated At
		if !it.UpdatedAt.IsZero() {
			write(8, it.UpdatedAt.UTC().Format(time.RFC3339))
		}
		row++
	}

	_ = f.SetColWidth(SheetName, "A", "A", 32) // filename
	_ = f.SetColWidth(SheetName, "B", "B", 12) // status
	_ = f.SetColWidth(SheetName, "C", "D", 24) // claimant, village
	_ = f.SetColWidth(SheetName, "E", "E", 12) // type
	_ = f.SetColWidth(SheetName, "F", "F", 24) // coordinates
	_ = f.SetColWidth(SheetName, "G", "G", 48) // error
	_ = f.SetColWidth(SheetName, "H", "H", 22) // updated

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("claims exported",
		"rows", len(items),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
