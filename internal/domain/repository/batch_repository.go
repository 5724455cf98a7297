package repository

import (
	"context"
	"time"

	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// BatchFilter filtros para listar lotes de un ámbito.
type BatchFilter struct {
	Scope        entity.Scope
	MaterialCode string // vacío = todos
	OnlyInStock  bool
	Limit        int
	Offset       int
}

// BatchRepository puerto único del pool de lotes, parametrizado por ámbito (bodega o distribuidor).
// Usado dentro de transacciones para garantizar consistencia.
type BatchRepository interface {
	Create(ctx context.Context, batch *entity.Batch) error
	GetByID(ctx context.Context, id string) (*entity.Batch, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE). nil, nil si no existe.
	GetForUpdate(ctx context.Context, id string) (*entity.Batch, error)
	// GetByNumber busca por (ámbito, código de material, número de lote). nil, nil si no existe.
	GetByNumber(ctx context.Context, scope entity.Scope, materialCode, batchNumber string) (*entity.Batch, error)
	// ListCandidates lotes con stock > 0 de los materiales indicados, en orden FIFO.
	ListCandidates(ctx context.Context, scope entity.Scope, materialCodes []string) ([]*entity.Batch, error)
	List(ctx context.Context, filter BatchFilter) ([]*entity.Batch, error)
	// AdjustStock suma delta al stock solo si el resultado no queda negativo y fija el estado.
	// Devuelve false si la condición no se cumplió (stock concurrente insuficiente o fila inexistente).
	AdjustStock(ctx context.Context, id string, delta decimal.Decimal, status string, at time.Time) (bool, error)
	UpdateRecertification(ctx context.Context, batch *entity.Batch) error
	Delete(ctx context.Context, id string) error
}
