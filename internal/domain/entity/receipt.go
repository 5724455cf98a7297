package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt recepción de mercancía en bodega central.
type Receipt struct {
	ID          string
	WarehouseID string
	Supplier    string
	ReceivedBy  string
	ReceivedAt  time.Time
	Items       []ReceiptItem
}

// ReceiptItem línea de una recepción; crea (o incrementa) un lote de bodega.
type ReceiptItem struct {
	ID           string
	ReceiptID    string
	MaterialID   string
	MaterialCode string
	BatchID      string
	BatchNumber  string
	Quantity     decimal.Decimal
	ReceivedDate time.Time
	ExpiryDate   *time.Time
}
