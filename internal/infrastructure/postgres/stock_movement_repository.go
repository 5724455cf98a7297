package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo diario de movimientos sobre lotes.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

type stockMovementRow struct {
	ID            string          `db:"id"`
	BatchID       string          `db:"batch_id"`
	BatchNumber   string          `db:"batch_number"`
	MaterialCode  string          `db:"material_code"`
	ScopeKind     string          `db:"scope_kind"`
	ScopeOwnerID  string          `db:"scope_owner_id"`
	Type          string          `db:"movement_type"`
	Quantity      decimal.Decimal `db:"quantity"`
	ReferenceType string          `db:"reference_type"`
	ReferenceID   string          `db:"reference_id"`
	CreatedAt     time.Time       `db:"created_at"`
	CreatedBy     string          `db:"created_by"`
}

var movementColumns = []string{
	"id", "batch_id", "batch_number", "material_code", "scope_kind", "scope_owner_id",
	"movement_type", "quantity", "reference_type", "reference_id", "created_at", "created_by",
}

// Create registra un movimiento.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	ins := psql.Insert("stock_movements").Columns(movementColumns...).Values(
		m.ID, m.BatchID, m.BatchNumber, m.MaterialCode, m.Scope.Kind, m.Scope.OwnerID,
		m.Type, m.Quantity, m.ReferenceType, m.ReferenceID, m.CreatedAt, m.CreatedBy,
	)
	_, err := exec(ctx, r.q, ins, "insert stock movement")
	return err
}

// ListByReference movimientos originados por un documento, en orden de registro.
func (r *StockMovementRepo) ListByReference(ctx context.Context, referenceType, referenceID string) ([]*entity.StockMovement, error) {
	q := psql.Select(movementColumns...).From("stock_movements").
		Where(squirrel.Eq{"reference_type": referenceType, "reference_id": referenceID}).
		OrderBy("created_at", "id")
	return r.list(ctx, q)
}

// ListByBatch movimientos de un lote, más reciente primero.
func (r *StockMovementRepo) ListByBatch(ctx context.Context, batchID string, limit, offset int) ([]*entity.StockMovement, error) {
	q := psql.Select(movementColumns...).From("stock_movements").
		Where(squirrel.Eq{"batch_id": batchID}).
		OrderBy("created_at DESC", "id")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}
	return r.list(ctx, q)
}

func (r *StockMovementRepo) list(ctx context.Context, q squirrel.SelectBuilder) ([]*entity.StockMovement, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list movements: %w", err)
	}
	var rows []stockMovementRow
	if err := pgxscan.Select(ctx, r.q, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	out := make([]*entity.StockMovement, 0, len(rows))
	for _, row := range rows {
		out = append(out, &entity.StockMovement{
			ID:            row.ID,
			BatchID:       row.BatchID,
			BatchNumber:   row.BatchNumber,
			MaterialCode:  row.MaterialCode,
			Scope:         entity.Scope{Kind: row.ScopeKind, OwnerID: row.ScopeOwnerID},
			Type:          row.Type,
			Quantity:      row.Quantity,
			ReferenceType: row.ReferenceType,
			ReferenceID:   row.ReferenceID,
			CreatedAt:     row.CreatedAt,
			CreatedBy:     row.CreatedBy,
		})
	}
	return out, nil
}
