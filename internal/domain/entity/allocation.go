package entity

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// BatchAllocation registra cuánto se tomó de un lote concreto.
type BatchAllocation struct {
	BatchID      string          `json:"batchId"`
	BatchNumber  string          `json:"batchNumber"`
	QuantityUsed decimal.Decimal `json:"quantityUsed"`
	BatchStock   decimal.Decimal `json:"batchStock"` // stock del lote antes del descuento
	ReceivedDate time.Time       `json:"receivedDate"`
	ExpiryDate   *time.Time      `json:"expiryDate,omitempty"`
}

// MaterialUsage consumo de un material dentro de un registro de asignación.
type MaterialUsage struct {
	MaterialID      string            `json:"materialId"`
	Code            string            `json:"code"`
	Name            string            `json:"name"`
	Type            string            `json:"type"`
	Unit            string            `json:"unit"`
	QuantityPerUnit decimal.Decimal   `json:"quantityPerUnit"`
	TotalQuantity   decimal.Decimal   `json:"totalQuantity"`
	Batches         []BatchAllocation `json:"batches"`
}

// AllocationRecord resultado persistido e inmutable de un plan confirmado.
// Es la única fuente para revertir el descuento: indica qué lotes se tocaron.
type AllocationRecord struct {
	Scope     Scope                    `json:"scope"`
	Materials map[string]MaterialUsage `json:"materials"` // por código de material
}

// Codes devuelve los códigos de material ordenados (orden determinista de aplicación).
func (r AllocationRecord) Codes() []string {
	codes := make([]string, 0, len(r.Materials))
	for code := range r.Materials {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// IsEmpty indica si el registro no tocó ningún lote.
func (r AllocationRecord) IsEmpty() bool {
	for _, m := range r.Materials {
		if len(m.Batches) > 0 {
			return false
		}
	}
	return true
}
