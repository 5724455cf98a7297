package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento del diario de lotes.
const (
	MovementTypeDeduct      = "DEDUCT"       // consumo por asignación FIFO (garantía)
	MovementTypeRestore     = "RESTORE"      // reversión de un consumo
	MovementTypeReceipt     = "RECEIPT"      // entrada a bodega
	MovementTypeWithdraw    = "WITHDRAW"     // retiro por edición/eliminación de un documento
	MovementTypeDeliveryOut = "DELIVERY_OUT" // salida de bodega hacia distribuidor
	MovementTypeDeliveryIn  = "DELIVERY_IN"  // llegada al distribuidor
)

// Tipos de documento que originan movimientos.
const (
	ReferenceWarranty = "WARRANTY"
	ReferenceDelivery = "DELIVERY"
	ReferenceReceipt  = "RECEIPT"
)

// StockMovement fila del diario: cada descuento o restauración sobre un lote.
type StockMovement struct {
	ID            string
	BatchID       string
	BatchNumber   string
	MaterialCode  string
	Scope         Scope
	Type          string
	Quantity      decimal.Decimal // positivo entrada, negativo salida
	ReferenceType string
	ReferenceID   string
	CreatedAt     time.Time
	CreatedBy     string // UserID
}
