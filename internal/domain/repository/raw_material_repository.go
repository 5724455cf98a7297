package repository

import (
	"context"

	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// RawMaterialRepository puerto de materias primas y su agregado de bodega.
type RawMaterialRepository interface {
	GetByCode(ctx context.Context, code string) (*entity.RawMaterial, error)
	GetByID(ctx context.Context, id string) (*entity.RawMaterial, error)
	// AdjustStock suma delta al agregado de bodega (sin bajar de cero).
	AdjustStock(ctx context.Context, id string, delta decimal.Decimal) error
}
