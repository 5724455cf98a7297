package repository

import (
	"context"

	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
)

// StockMovementRepository diario de movimientos sobre lotes.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	ListByReference(ctx context.Context, referenceType, referenceID string) ([]*entity.StockMovement, error)
	ListByBatch(ctx context.Context, batchID string, limit, offset int) ([]*entity.StockMovement, error)
}
