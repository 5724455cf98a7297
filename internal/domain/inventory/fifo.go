package inventory

import (
	"sort"
	"time"

	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// BatchSnapshot copia en memoria de un lote candidato, tomada antes de planificar.
type BatchSnapshot struct {
	ID           string
	BatchNumber  string
	CurrentStock decimal.Decimal
	ReceivedDate time.Time
	ExpiryDate   *time.Time
	CreatedAt    time.Time
}

// SnapshotOf toma la foto de un lote.
func SnapshotOf(b *entity.Batch) BatchSnapshot {
	return BatchSnapshot{
		ID:           b.ID,
		BatchNumber:  b.BatchNumber,
		CurrentStock: b.CurrentStock,
		ReceivedDate: b.ReceivedDate,
		ExpiryDate:   b.ExpiryDate,
		CreatedAt:    b.CreatedAt,
	}
}

// Allocation resultado del asignador FIFO para un material.
type Allocation struct {
	Allocations    []entity.BatchAllocation
	TotalAvailable decimal.Decimal // suma sobre todos los candidatos, se usen o no
	Sufficient     bool
}

// AllocateFIFO reparte required entre los lotes, el más antiguo primero.
// Orden: receivedDate, luego createdAt, luego orden de entrada (sort estable).
// Lotes con stock <= 0 se ignoran. No modifica los candidatos.
func AllocateFIFO(required decimal.Decimal, candidates []BatchSnapshot) Allocation {
	sorted := make([]BatchSnapshot, 0, len(candidates))
	for _, c := range candidates {
		if c.CurrentStock.IsPositive() {
			sorted = append(sorted, c)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ReceivedDate.Equal(sorted[j].ReceivedDate) {
			return sorted[i].ReceivedDate.Before(sorted[j].ReceivedDate)
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	total := decimal.Zero
	for _, c := range sorted {
		total = total.Add(c.CurrentStock)
	}

	allocations := make([]entity.BatchAllocation, 0)
	remaining := required
	for _, c := range sorted {
		if !remaining.IsPositive() {
			break
		}
		use := decimal.Min(remaining, c.CurrentStock)
		if !use.IsPositive() {
			continue
		}
		allocations = append(allocations, entity.BatchAllocation{
			BatchID:      c.ID,
			BatchNumber:  c.BatchNumber,
			QuantityUsed: use,
			BatchStock:   c.CurrentStock,
			ReceivedDate: c.ReceivedDate,
			ExpiryDate:   c.ExpiryDate,
		})
		remaining = remaining.Sub(use)
	}

	return Allocation{
		Allocations:    allocations,
		TotalAvailable: total,
		Sufficient:     total.GreaterThanOrEqual(required),
	}
}
