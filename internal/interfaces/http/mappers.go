package http

import (
	"github.com/jhoicas/dealer-stock-api/internal/application/dto"
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/internal/domain/inventory"
)

func toScopeDTO(s entity.Scope) dto.ScopeDTO {
	return dto.ScopeDTO{Kind: s.Kind, OwnerID: s.OwnerID}
}

func toBatchAllocations(list []entity.BatchAllocation) []dto.BatchAllocationDTO {
	out := make([]dto.BatchAllocationDTO, len(list))
	for i, a := range list {
		out[i] = dto.BatchAllocationDTO{
			BatchID:      a.BatchID,
			BatchNumber:  a.BatchNumber,
			QuantityUsed: a.QuantityUsed,
			BatchStock:   a.BatchStock,
			ReceivedDate: a.ReceivedDate,
			ExpiryDate:   a.ExpiryDate,
		}
	}
	return out
}

func toPlanResponse(p *inventory.AllocationPlan) dto.PlanResponse {
	out := dto.PlanResponse{Scope: toScopeDTO(p.Scope), Materials: make([]dto.MaterialPlanDTO, len(p.Materials))}
	for i, m := range p.Materials {
		out.Materials[i] = dto.MaterialPlanDTO{
			MaterialCode:    m.Material.Code,
			MaterialName:    m.Material.Name,
			Unit:            m.Material.Unit,
			QuantityPerUnit: m.QuantityPerUnit,
			TotalRequired:   m.Required,
			TotalAvailable:  m.TotalAvailable,
			Batches:         toBatchAllocations(m.Allocations),
		}
	}
	return out
}

// toUsageDTO materiales del registro, en orden de código.
func toUsageDTO(rec entity.AllocationRecord) []dto.MaterialPlanDTO {
	codes := rec.Codes()
	out := make([]dto.MaterialPlanDTO, 0, len(codes))
	for _, code := range codes {
		m := rec.Materials[code]
		out = append(out, dto.MaterialPlanDTO{
			MaterialCode:    m.Code,
			MaterialName:    m.Name,
			Unit:            m.Unit,
			QuantityPerUnit: m.QuantityPerUnit,
			TotalRequired:   m.TotalQuantity,
			Batches:         toBatchAllocations(m.Batches),
		})
	}
	return out
}

func toWarrantyResponse(w *entity.Warranty) dto.WarrantyResponse {
	return dto.WarrantyResponse{
		ID:                w.ID,
		DealerID:          w.DealerID,
		ProductID:         w.ProductID,
		Area:              w.Area,
		CustomerReference: w.CustomerReference,
		IssuedBy:          w.IssuedBy,
		IssuedAt:          w.IssuedAt,
		UpdatedAt:         w.UpdatedAt,
		MaterialUsage:     toUsageDTO(w.MaterialUsage),
	}
}

func toBatchResponse(b *entity.Batch) dto.BatchResponse {
	return dto.BatchResponse{
		ID:                   b.ID,
		MaterialID:           b.MaterialID,
		MaterialCode:         b.MaterialCode,
		Scope:                toScopeDTO(b.Scope),
		BatchNumber:          b.BatchNumber,
		CurrentStock:         b.CurrentStock,
		ReceivedDate:         b.ReceivedDate,
		ExpiryDate:           b.ExpiryDate,
		Status:               b.Status,
		IsRecertified:        b.IsRecertified,
		RecertificationCount: b.RecertificationCount,
		LastRecertifiedAt:    b.LastRecertifiedAt,
		LastRecertifiedBy:    b.LastRecertifiedBy,
	}
}

func toRecertificationResponse(h *entity.RecertificationHistory) dto.RecertificationResponse {
	return dto.RecertificationResponse{
		ID:            h.ID,
		BatchID:       h.BatchID,
		OldExpiry:     h.OldExpiry,
		NewExpiry:     h.NewExpiry,
		ExtendedDays:  h.ExtendedDays,
		RecertifiedBy: h.RecertifiedBy,
		RecertifiedAt: h.RecertifiedAt,
		Reason:        h.Reason,
	}
}

func toReceiptResponse(r *entity.Receipt) dto.ReceiptResponse {
	out := dto.ReceiptResponse{
		ID:          r.ID,
		WarehouseID: r.WarehouseID,
		Supplier:    r.Supplier,
		ReceivedBy:  r.ReceivedBy,
		ReceivedAt:  r.ReceivedAt,
		Items:       make([]dto.StockLineResponse, len(r.Items)),
	}
	for i, it := range r.Items {
		out.Items[i] = dto.StockLineResponse{
			MaterialCode: it.MaterialCode,
			BatchID:      it.BatchID,
			BatchNumber:  it.BatchNumber,
			Quantity:     it.Quantity,
			ReceivedDate: it.ReceivedDate,
			ExpiryDate:   it.ExpiryDate,
		}
	}
	return out
}

func toDeliveryResponse(d *entity.Delivery) dto.DeliveryResponse {
	out := dto.DeliveryResponse{
		ID:          d.ID,
		DealerID:    d.DealerID,
		WarehouseID: d.WarehouseID,
		DeliveredBy: d.DeliveredBy,
		DeliveredAt: d.DeliveredAt,
		Notes:       d.Notes,
		Items:       make([]dto.StockLineResponse, len(d.Items)),
	}
	for i, it := range d.Items {
		out.Items[i] = dto.StockLineResponse{
			MaterialCode: it.MaterialCode,
			BatchID:      it.WarehouseBatchID,
			BatchNumber:  it.BatchNumber,
			Quantity:     it.Quantity,
			ReceivedDate: it.ReceivedDate,
			ExpiryDate:   it.ExpiryDate,
		}
	}
	return out
}
