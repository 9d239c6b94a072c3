package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/meridian-erp/meridian-erp/internal/accounting"
)

func TestOutstandingWorkbookRoundTrip(t *testing.T) {
	wb, err := OutstandingWorkbook([]accounting.OutstandingBalance{
		{CounterpartyOrgID: 2, CounterpartyOrgCode: "ACME", Receivable: decimal.NewFromInt(1250), Payable: decimal.NewFromInt(300)},
		{CounterpartyOrgID: 3, Receivable: decimal.Zero, Payable: decimal.NewFromFloat(1999.5)},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = wb.WriteTo(&buf)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Outstanding")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"Counterparty", "Receivable", "Payable"}, rows[0])
	require.Equal(t, "ACME", rows[1][0])
	require.Equal(t, "1,250.00", rows[1][1])
	require.Equal(t, "org 3", rows[2][0])
	require.Equal(t, "1,999.50", rows[2][2])
}

func TestSubledgerWorkbookFormatsEntries(t *testing.T) {
	created := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	wb, err := SubledgerWorkbook([]accounting.SubledgerEntry{
		{ID: 1, CounterpartyOrgID: 2, JournalID: 7, Amount: decimal.NewFromInt(-250), Status: accounting.SubledgerOpen, CreatedAt: created},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = wb.WriteTo(&buf)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Subledger")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "-250.00", rows[1][3])
	require.Equal(t, "2025-04-01", rows[1][5])
}
