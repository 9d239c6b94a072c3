package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/meridian-erp/meridian-erp/internal/accounting"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
)

// Workbook builds a single-sheet XLSX report.
type Workbook struct {
	file    *excelize.File
	sheet   string
	row     int
	printer *message.Printer
}

// NewWorkbook opens a workbook with one named sheet and a header row.
func NewWorkbook(sheet string, header []string) (*Workbook, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("export: new sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("export: drop default sheet: %w", err)
	}

	wb := &Workbook{file: f, sheet: sheet, row: 1, printer: message.NewPrinter(language.English)}
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := wb.AppendRow(cells...); err != nil {
		return nil, err
	}
	return wb, nil
}

// AppendRow writes one row below the last one.
func (w *Workbook) AppendRow(cells ...any) error {
	for i, cell := range cells {
		name, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			return fmt.Errorf("export: cell name: %w", err)
		}
		if err := w.file.SetCellValue(w.sheet, name, cell); err != nil {
			return fmt.Errorf("export: set cell: %w", err)
		}
	}
	w.row++
	return nil
}

// Amount renders a decimal with thousands grouping and two fraction digits.
func (w *Workbook) Amount(d decimal.Decimal) string {
	return w.printer.Sprintf("%.2f", d.InexactFloat64())
}

// WriteTo streams the finished workbook.
func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	defer w.file.Close()
	return w.file.WriteTo(out)
}

// SubledgerWorkbook lays out open and settled subledger entries.
func SubledgerWorkbook(entries []accounting.SubledgerEntry) (*Workbook, error) {
	wb, err := NewWorkbook("Subledger", []string{"Entry", "Counterparty Org", "Journal", "Amount", "Status", "Created"})
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		err := wb.AppendRow(e.ID, e.CounterpartyOrgID, e.JournalID, wb.Amount(e.Amount), string(e.Status), e.CreatedAt.Format("2006-01-02"))
		if err != nil {
			return nil, err
		}
	}
	return wb, nil
}

// OutstandingWorkbook lays out per-counterparty receivable and payable totals.
func OutstandingWorkbook(balances []accounting.OutstandingBalance) (*Workbook, error) {
	wb, err := NewWorkbook("Outstanding", []string{"Counterparty", "Receivable", "Payable"})
	if err != nil {
		return nil, err
	}
	for _, b := range balances {
		name := b.CounterpartyOrgCode
		if name == "" {
			name = fmt.Sprintf("org %d", b.CounterpartyOrgID)
		}
		if err := wb.AppendRow(name, wb.Amount(b.Receivable), wb.Amount(b.Payable)); err != nil {
			return nil, err
		}
	}
	return wb, nil
}

// LedgerWorkbook lays out aggregated account balances.
func LedgerWorkbook(balances []accounting.LedgerBalance) (*Workbook, error) {
	wb, err := NewWorkbook("General Ledger", []string{"Account", "Name", "Debit", "Credit", "Balance"})
	if err != nil {
		return nil, err
	}
	for _, b := range balances {
		err := wb.AppendRow(b.AccountCode, b.AccountName, wb.Amount(b.Debit), wb.Amount(b.Credit), wb.Amount(b.Balance))
		if err != nil {
			return nil, err
		}
	}
	return wb, nil
}

// StockSummaryWorkbook lays out per-item stock totals across divisions.
func StockSummaryWorkbook(rows []inventory.StockSummary) (*Workbook, error) {
	wb, err := NewWorkbook("Stock Summary", []string{"SKU", "Item", "Total Quantity", "Divisions"})
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := wb.AppendRow(r.SKU, r.ItemName, r.TotalQuantity.String(), r.Divisions); err != nil {
			return nil, err
		}
	}
	return wb, nil
}
