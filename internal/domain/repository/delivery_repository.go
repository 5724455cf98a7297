package repository

import (
	"context"

	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
)

// DeliveryRepository envíos bodega → distribuidor con sus ítems.
type DeliveryRepository interface {
	Create(ctx context.Context, d *entity.Delivery) error
	GetByID(ctx context.Context, id string) (*entity.Delivery, error)
	Delete(ctx context.Context, id string) error
}
