package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// SheetName is the worksheet holding the transactions.
const SheetName = "Transactions"

// Headers lists the output columns in order.
var Headers = []string{
	"Date",
	"Description",
	"Amount",
	"Installment",
	"Currency",
	"Page",
	"Confidence",
	"Bank",
}

// XLSXRenderer produces the transactions workbook.
type XLSXRenderer struct {
	logger *slog.Logger
}

func NewXLSXRenderer(logger *slog.Logger) *XLSXRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXRenderer{logger: logger}
}

// Render writes txs, in order, to a single-sheet workbook and returns its bytes.
func (r *XLSXRenderer) Render(ctx context.Context, txs []entity.Transaction) ([]byte, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// rename the default sheet rather than adding a second one
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}
	_ = f.SetCellStyle(SheetName, "A1", "H1", bold)

	for i, t := range txs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}
		write(1, t.Date)
		write(2, t.Description)
		write(3, t.Amount)
		write(4, t.Installment)
		write(5, t.Currency)
		write(6, t.Page)
		write(7, t.Confidence)
		write(8, t.Bank)
	}

	if n := len(txs); n > 0 {
		last := n + 1
		money := "R$ #,##0.00"
		amountStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &money})
		if err != nil {
			return nil, fmt.Errorf("xlsx style: %w", err)
		}
		ratio := "0.00"
		confStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &ratio})
		if err != nil {
			return nil, fmt.Errorf("xlsx style: %w", err)
		}
		_ = f.SetCellStyle(SheetName, "C2", fmt.Sprintf("C%d", last), amountStyle)
		_ = f.SetCellStyle(SheetName, "G2", fmt.Sprintf("G%d", last), confStyle)
	}

	_ = f.SetColWidth(SheetName, "A", "A", 12) // date
	_ = f.SetColWidth(SheetName, "B", "B", 40) // description
	_ = f.SetColWidth(SheetName, "C", "C", 15)
	_ = f.SetColWidth(SheetName, "D", "D", 12)
	_ = f.SetColWidth(SheetName, "E", "E", 10)
	_ = f.SetColWidth(SheetName, "F", "F", 8)
	_ = f.SetColWidth(SheetName, "G", "G", 12)
	_ = f.SetColWidth(SheetName, "H", "H", 20) // bank

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	r.logger.Info("export.xlsx.ok",
		"rows", len(txs),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
