package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScopeDTO ámbito de lotes: kind = warehouse | dealer.
type ScopeDTO struct {
	Kind    string `json:"kind"`
	OwnerID string `json:"owner_id"`
}

// PlanRequest body para POST /api/allocations/preview.
// Un distribuidor siempre planifica sobre su propio stock; dealer_id solo aplica a admin.
type PlanRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	RecipeID  string          `json:"recipe_id,omitempty"`
	Area      decimal.Decimal `json:"area"`
	ScopeKind string          `json:"scope_kind,omitempty" validate:"omitempty,oneof=warehouse dealer"`
	DealerID  string          `json:"dealer_id,omitempty"`
}

// BatchAllocationDTO cantidad tomada de un lote.
type BatchAllocationDTO struct {
	BatchID      string          `json:"batch_id"`
	BatchNumber  string          `json:"batch_number"`
	QuantityUsed decimal.Decimal `json:"quantity_used"`
	BatchStock   decimal.Decimal `json:"batch_stock"`
	ReceivedDate time.Time       `json:"received_date"`
	ExpiryDate   *time.Time      `json:"expiry_date,omitempty"`
}

// MaterialPlanDTO consumo planificado de un material.
type MaterialPlanDTO struct {
	MaterialCode    string               `json:"material_code"`
	MaterialName    string               `json:"material_name"`
	Unit            string               `json:"unit"`
	QuantityPerUnit decimal.Decimal      `json:"quantity_per_unit"`
	TotalRequired   decimal.Decimal      `json:"total_required"`
	TotalAvailable  decimal.Decimal      `json:"total_available"`
	Batches         []BatchAllocationDTO `json:"batches"`
}

// PlanResponse plan de asignación sin confirmar.
type PlanResponse struct {
	Scope     ScopeDTO          `json:"scope"`
	Materials []MaterialPlanDTO `json:"materials"`
}

// ShortageDTO faltante de un material (detalle de INSUFFICIENT_STOCK).
type ShortageDTO struct {
	MaterialCode   string          `json:"material_code"`
	MaterialName   string          `json:"material_name,omitempty"`
	Unit           string          `json:"unit,omitempty"`
	TotalRequired  decimal.Decimal `json:"total_required"`
	TotalAvailable decimal.Decimal `json:"total_available"`
	Shortfall      decimal.Decimal `json:"shortfall"`
}

// IssueWarrantyRequest body para POST /api/warranties.
type IssueWarrantyRequest struct {
	ProductID         string          `json:"product_id" validate:"required"`
	Area              decimal.Decimal `json:"area"`
	CustomerReference string          `json:"customer_reference" validate:"max=120"`
	DealerID          string          `json:"dealer_id,omitempty"`
}

// UpdateWarrantyRequest body para PUT /api/warranties/:id.
type UpdateWarrantyRequest struct {
	Area decimal.Decimal `json:"area"`
}

// WarrantyResponse garantía con los materiales que consumió.
type WarrantyResponse struct {
	ID                string            `json:"id"`
	DealerID          string            `json:"dealer_id"`
	ProductID         string            `json:"product_id"`
	Area              decimal.Decimal   `json:"area"`
	CustomerReference string            `json:"customer_reference,omitempty"`
	IssuedBy          string            `json:"issued_by"`
	IssuedAt          time.Time         `json:"issued_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	MaterialUsage     []MaterialPlanDTO `json:"material_usage"`
}

// BatchResponse lote con estado derivado al momento de la lectura.
type BatchResponse struct {
	ID                   string          `json:"id"`
	MaterialID           string          `json:"material_id"`
	MaterialCode         string          `json:"material_code"`
	Scope                ScopeDTO        `json:"scope"`
	BatchNumber          string          `json:"batch_number"`
	CurrentStock         decimal.Decimal `json:"current_stock"`
	ReceivedDate         time.Time       `json:"received_date"`
	ExpiryDate           *time.Time      `json:"expiry_date,omitempty"`
	Status               string          `json:"status"`
	IsRecertified        bool            `json:"is_recertified"`
	RecertificationCount int             `json:"recertification_count"`
	LastRecertifiedAt    *time.Time      `json:"last_recertified_at,omitempty"`
	LastRecertifiedBy    string          `json:"last_recertified_by,omitempty"`
}

// BatchListResponse listado paginado de lotes.
type BatchListResponse struct {
	Items []BatchResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}

// BatchListQuery filtros de GET /api/batches.
type BatchListQuery struct {
	Limit        int    `query:"limit" validate:"min=0,max=200"`
	Offset       int    `query:"offset" validate:"min=0"`
	ScopeKind    string `query:"scope" validate:"omitempty,oneof=warehouse dealer"`
	OwnerID      string `query:"owner_id"`
	MaterialCode string `query:"material_code"`
	InStock      bool   `query:"in_stock"`
}

// RecertifyRequest body para POST /api/batches/:id/recertify.
type RecertifyRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// RecertificationResponse fila del historial de recertificaciones.
type RecertificationResponse struct {
	ID            string    `json:"id"`
	BatchID       string    `json:"batch_id"`
	OldExpiry     time.Time `json:"old_expiry"`
	NewExpiry     time.Time `json:"new_expiry"`
	ExtendedDays  int       `json:"extended_days"`
	RecertifiedBy string    `json:"recertified_by"`
	RecertifiedAt time.Time `json:"recertified_at"`
	Reason        string    `json:"reason,omitempty"`
}

// RecertifyResponse lote actualizado más la fila de auditoría creada.
type RecertifyResponse struct {
	Batch           BatchResponse           `json:"batch"`
	Recertification RecertificationResponse `json:"recertification"`
}

// ReceiptItemRequest línea de recepción. Fechas en formato YYYY-MM-DD.
type ReceiptItemRequest struct {
	MaterialCode string          `json:"material_code" validate:"required"`
	BatchNumber  string          `json:"batch_number" validate:"required,max=64"`
	Quantity     decimal.Decimal `json:"quantity"`
	ReceivedDate string          `json:"received_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ExpiryDate   string          `json:"expiry_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// CreateReceiptRequest body para POST /api/receipts.
type CreateReceiptRequest struct {
	Supplier string               `json:"supplier" validate:"max=120"`
	Items    []ReceiptItemRequest `json:"items" validate:"required,min=1,dive"`
}

// StockLineResponse línea de recepción o envío.
type StockLineResponse struct {
	MaterialCode string          `json:"material_code"`
	BatchID      string          `json:"batch_id,omitempty"`
	BatchNumber  string          `json:"batch_number"`
	Quantity     decimal.Decimal `json:"quantity"`
	ReceivedDate time.Time       `json:"received_date"`
	ExpiryDate   *time.Time      `json:"expiry_date,omitempty"`
}

// ReceiptResponse recepción creada.
type ReceiptResponse struct {
	ID          string              `json:"id"`
	WarehouseID string              `json:"warehouse_id"`
	Supplier    string              `json:"supplier,omitempty"`
	ReceivedBy  string              `json:"received_by"`
	ReceivedAt  time.Time           `json:"received_at"`
	Items       []StockLineResponse `json:"items"`
}

// DeliveryItemRequest línea de envío desde un lote de bodega.
type DeliveryItemRequest struct {
	WarehouseBatchID string          `json:"warehouse_batch_id" validate:"required"`
	Quantity         decimal.Decimal `json:"quantity"`
}

// CreateDeliveryRequest body para POST /api/deliveries.
type CreateDeliveryRequest struct {
	DealerID string                `json:"dealer_id" validate:"required"`
	Notes    string                `json:"notes" validate:"max=500"`
	Items    []DeliveryItemRequest `json:"items" validate:"required,min=1,dive"`
}

// DeliveryResponse envío creado.
type DeliveryResponse struct {
	ID          string              `json:"id"`
	DealerID    string              `json:"dealer_id"`
	WarehouseID string              `json:"warehouse_id"`
	DeliveredBy string              `json:"delivered_by"`
	DeliveredAt time.Time           `json:"delivered_at"`
	Notes       string              `json:"notes,omitempty"`
	Items       []StockLineResponse `json:"items"`
}
