// Package xlsx lectura de recepciones de bodega desde hojas de cálculo.
package xlsx

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/dealer-stock-api/internal/application/inventory"
	"github.com/jhoicas/dealer-stock-api/internal/domain"
)

var _ inventory.ReceiptSheetParser = ReceiptImporter{}

// Columnas de la hoja activa; la fila 1 es encabezado.
const (
	colMaterial = iota
	colBatch
	colQuantity
	colReceived
	colExpiry
)

// dateLayouts formatos de fecha aceptados en texto.
var dateLayouts = []string{"2006-01-02", "02/01/2006", "2006/01/02"}

// ReceiptImporter convierte la hoja activa en líneas de recepción:
// código de material | número de lote | cantidad | fecha de recepción | fecha de vencimiento.
// Las fechas son opcionales. Las filas vacías se ignoran.
type ReceiptImporter struct{}

// Parse lee todas las filas; el primer error indica la fila (1-based) que lo causó.
func (ReceiptImporter) Parse(r io.Reader) ([]inventory.ReceiptItemInput, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("archivo no es un .xlsx válido: %w", domain.ErrInvalidInput)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("leer hoja %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("la hoja no tiene filas de datos: %w", domain.ErrInvalidInput)
	}

	items := make([]inventory.ReceiptItemInput, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		code := cell(row, colMaterial)
		batch := cell(row, colBatch)
		qty := cell(row, colQuantity)
		if code == "" && batch == "" && qty == "" {
			continue
		}
		if code == "" || batch == "" {
			return nil, rowError(i+1, "material y lote son obligatorios")
		}
		quantity, err := decimal.NewFromString(strings.ReplaceAll(qty, ",", "."))
		if err != nil || !quantity.IsPositive() {
			return nil, rowError(i+1, fmt.Sprintf("cantidad inválida %q", qty))
		}
		item := inventory.ReceiptItemInput{MaterialCode: code, BatchNumber: batch, Quantity: quantity}
		if raw := cell(row, colReceived); raw != "" {
			d, err := parseDate(raw)
			if err != nil {
				return nil, rowError(i+1, fmt.Sprintf("fecha de recepción inválida %q", raw))
			}
			item.ReceivedDate = d
		}
		if raw := cell(row, colExpiry); raw != "" {
			d, err := parseDate(raw)
			if err != nil {
				return nil, rowError(i+1, fmt.Sprintf("fecha de vencimiento inválida %q", raw))
			}
			item.ExpiryDate = &d
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("la hoja no tiene filas de datos: %w", domain.ErrInvalidInput)
	}
	return items, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func rowError(n int, msg string) error {
	return fmt.Errorf("fila %d: %s: %w", n, msg, domain.ErrInvalidInput)
}

// parseDate acepta texto en dateLayouts o el número de serie de Excel.
func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, err
	}
	return excelize.ExcelDateToTime(serial, false)
}
