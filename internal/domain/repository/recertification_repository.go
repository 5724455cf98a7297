package repository

import (
	"context"

	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
)

// RecertificationRepository historial inmutable: solo inserta y lista.
type RecertificationRepository interface {
	Create(ctx context.Context, h *entity.RecertificationHistory) error
	ListByBatch(ctx context.Context, batchID string) ([]*entity.RecertificationHistory, error)
}
