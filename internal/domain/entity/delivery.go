package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Delivery envío de bodega central a un distribuidor.
type Delivery struct {
	ID          string
	DealerID    string
	WarehouseID string
	DeliveredBy string
	DeliveredAt time.Time
	Notes       string
	Items       []DeliveryItem
}

// DeliveryItem línea de un envío: sale de un lote de bodega y llega al lote homónimo del distribuidor.
type DeliveryItem struct {
	ID               string
	DeliveryID       string
	MaterialID       string
	MaterialCode     string
	WarehouseBatchID string
	BatchNumber      string
	Quantity         decimal.Decimal
	ReceivedDate     time.Time
	ExpiryDate       *time.Time
}
