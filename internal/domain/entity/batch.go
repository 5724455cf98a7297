package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un lote. EXPIRED se deriva al leer (no hay barrido en segundo plano).
const (
	BatchStatusAvailable  = "AVAILABLE"
	BatchStatusOutOfStock = "OUT_OF_STOCK"
	BatchStatusExpired    = "EXPIRED"
)

// Tipos de ámbito (pool) de lotes.
const (
	ScopeWarehouse = "warehouse" // bodega central (headquarters)
	ScopeDealer    = "dealer"    // distribuidor
)

// Scope identifica el pool de lotes: bodega central o un distribuidor concreto.
// Nunca se asigna stock de dos pools en la misma llamada.
type Scope struct {
	Kind    string `json:"kind"`
	OwnerID string `json:"ownerId"`
}

// WarehouseScope construye el ámbito de la bodega central.
func WarehouseScope(warehouseID string) Scope {
	return Scope{Kind: ScopeWarehouse, OwnerID: warehouseID}
}

// DealerScope construye el ámbito de un distribuidor.
func DealerScope(dealerID string) Scope {
	return Scope{Kind: ScopeDealer, OwnerID: dealerID}
}

// IsDealer indica si el ámbito es de distribuidor.
func (s Scope) IsDealer() bool { return s.Kind == ScopeDealer }

// Valid valida tipo y dueño del ámbito.
func (s Scope) Valid() bool {
	return (s.Kind == ScopeWarehouse || s.Kind == ScopeDealer) && s.OwnerID != ""
}

func (s Scope) String() string { return s.Kind + ":" + s.OwnerID }

// Batch representa un lote de materia prima con su propio contador de stock.
// Los lotes de bodega persisten en cero (OUT_OF_STOCK); los de distribuidor se eliminan
// cuando una reversión los deja en cero.
type Batch struct {
	ID                   string
	MaterialID           string
	MaterialCode         string
	Scope                Scope
	BatchNumber          string          // único dentro del ámbito
	CurrentStock         decimal.Decimal // nunca negativo
	ReceivedDate         time.Time       // clave FIFO
	ExpiryDate           *time.Time      // nil = no vence
	Status               string          // AVAILABLE, OUT_OF_STOCK, EXPIRED
	IsRecertified        bool
	RecertificationCount int
	LastRecertifiedAt    *time.Time
	LastRecertifiedBy    string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
