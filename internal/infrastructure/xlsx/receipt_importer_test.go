package xlsx_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/dealer-stock-api/internal/domain"
	"github.com/jhoicas/dealer-stock-api/internal/infrastructure/xlsx"
)

func sheet(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	name := f.GetSheetName(f.GetActiveSheetIndex())
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(name, cellRef, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

var header = []any{"material", "lote", "cantidad", "recepcion", "vencimiento"}

func TestReceiptImporter_Parse(t *testing.T) {
	buf := sheet(t, [][]any{
		header,
		{"RES-01", "L-100", "12.5", "2024-03-01", "2025-03-01"},
		{},
		{"CAT-02", "L-7", "3,25"},
	})

	items, err := xlsx.ReceiptImporter{}.Parse(buf)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "RES-01", items[0].MaterialCode)
	assert.Equal(t, "L-100", items[0].BatchNumber)
	assert.Equal(t, "12.5", items[0].Quantity.String())
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), items[0].ReceivedDate)
	require.NotNil(t, items[0].ExpiryDate)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *items[0].ExpiryDate)

	assert.Equal(t, "3.25", items[1].Quantity.String())
	assert.True(t, items[1].ReceivedDate.IsZero())
	assert.Nil(t, items[1].ExpiryDate)
}

func TestReceiptImporter_ErrorIndicaLaFila(t *testing.T) {
	buf := sheet(t, [][]any{
		header,
		{"RES-01", "L-1", "1"},
		{"RES-01", "L-2", "-4"},
	})
	_, err := xlsx.ReceiptImporter{}.Parse(buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.True(t, strings.Contains(err.Error(), "fila 3"), err.Error())

	buf = sheet(t, [][]any{header, {"RES-01", "L-1", "1", "mañana"}})
	_, err = xlsx.ReceiptImporter{}.Parse(buf)
	assert.ErrorContains(t, err, "fila 2")
}

func TestReceiptImporter_ArchivoInvalido(t *testing.T) {
	_, err := xlsx.ReceiptImporter{}.Parse(strings.NewReader("no es un zip"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = xlsx.ReceiptImporter{}.Parse(sheet(t, [][]any{header}))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
