package repository

import (
	"context"

	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
)

// WarrantyRepository persiste la garantía junto con su registro de asignación (JSONB).
type WarrantyRepository interface {
	Create(ctx context.Context, w *entity.Warranty) error
	GetByID(ctx context.Context, id string) (*entity.Warranty, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Warranty, error)
	Update(ctx context.Context, w *entity.Warranty) error
	Delete(ctx context.Context, id string) error
}
