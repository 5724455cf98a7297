package inventory

import (
	"github.com/jhoicas/dealer-stock-api/internal/domain"
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// MaterialPlan plan de consumo de un material ya validado.
type MaterialPlan struct {
	Requirement
	Allocation
}

// AllocationPlan plan completo, todavía sin confirmar, para un único ámbito.
type AllocationPlan struct {
	Scope     entity.Scope
	Materials []MaterialPlan
}

// IsEmpty indica si el plan no toca ningún lote (receta vacía o área <= 0).
func (p *AllocationPlan) IsEmpty() bool {
	for _, m := range p.Materials {
		if len(m.Allocations) > 0 {
			return false
		}
	}
	return true
}

// Record convierte el plan en el registro persistible (por código de material).
func (p *AllocationPlan) Record() entity.AllocationRecord {
	rec := entity.AllocationRecord{
		Scope:     p.Scope,
		Materials: make(map[string]entity.MaterialUsage, len(p.Materials)),
	}
	for _, m := range p.Materials {
		batches := make([]entity.BatchAllocation, len(m.Allocations))
		copy(batches, m.Allocations)
		rec.Materials[m.Material.Code] = entity.MaterialUsage{
			MaterialID:      m.Material.ID,
			Code:            m.Material.Code,
			Name:            m.Material.Name,
			Type:            m.Material.Type,
			Unit:            m.Material.Unit,
			QuantityPerUnit: m.QuantityPerUnit,
			TotalQuantity:   m.Required,
			Batches:         batches,
		}
	}
	return rec
}

// ValidateSufficiency ejecuta el asignador FIFO para cada requerimiento sobre la foto del pool
// (lotes candidatos por código de material). Es de solo lectura.
// Si algún material no alcanza devuelve *domain.ShortfallError con todos los faltantes.
func ValidateSufficiency(scope entity.Scope, reqs []Requirement, pool map[string][]BatchSnapshot) (*AllocationPlan, error) {
	plan := &AllocationPlan{Scope: scope, Materials: make([]MaterialPlan, 0, len(reqs))}
	var shortages []domain.Shortage
	for _, req := range reqs {
		alloc := AllocateFIFO(req.Required, pool[req.Material.Code])
		if !alloc.Sufficient {
			shortages = append(shortages, domain.Shortage{
				MaterialCode:   req.Material.Code,
				MaterialName:   req.Material.Name,
				Unit:           req.Material.Unit,
				TotalRequired:  req.Required,
				TotalAvailable: alloc.TotalAvailable,
				Shortfall:      req.Required.Sub(alloc.TotalAvailable),
			})
			continue
		}
		plan.Materials = append(plan.Materials, MaterialPlan{Requirement: req, Allocation: alloc})
	}
	if len(shortages) > 0 {
		return nil, &domain.ShortfallError{Shortages: shortages}
	}
	return plan, nil
}

// TotalRequired suma de lo requerido por un plan (útil para métricas y logs).
func (p *AllocationPlan) TotalRequired() decimal.Decimal {
	total := decimal.Zero
	for _, m := range p.Materials {
		total = total.Add(m.Required)
	}
	return total
}
