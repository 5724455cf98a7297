package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/dealer-stock-api/internal/domain"
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/internal/domain/repository"
)

var _ repository.RawMaterialRepository = (*RawMaterialRepo)(nil)

// RawMaterialRepo materias primas con su agregado de stock de bodega.
type RawMaterialRepo struct {
	q Querier
}

// NewRawMaterialRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRawMaterialRepository(q Querier) *RawMaterialRepo {
	return &RawMaterialRepo{q: q}
}

type rawMaterialRow struct {
	ID           string          `db:"id"`
	Code         string          `db:"code"`
	Name         string          `db:"name"`
	Type         string          `db:"type"`
	Unit         string          `db:"unit"`
	CurrentStock decimal.Decimal `db:"current_stock"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (r *RawMaterialRepo) get(ctx context.Context, where squirrel.Eq) (*entity.RawMaterial, error) {
	sql, args, err := psql.Select("id", "code", "name", "type", "unit", "current_stock", "created_at", "updated_at").
		From("raw_materials").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get raw material: %w", err)
	}
	var row rawMaterialRow
	if err := pgxscan.Get(ctx, r.q, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get raw material: %w", err)
	}
	m := entity.RawMaterial(row)
	return &m, nil
}

// GetByCode obtiene la materia prima por código. nil, nil si no existe.
func (r *RawMaterialRepo) GetByCode(ctx context.Context, code string) (*entity.RawMaterial, error) {
	return r.get(ctx, squirrel.Eq{"code": code})
}

// GetByID obtiene la materia prima por ID. nil, nil si no existe.
func (r *RawMaterialRepo) GetByID(ctx context.Context, id string) (*entity.RawMaterial, error) {
	return r.get(ctx, squirrel.Eq{"id": id})
}

// AdjustStock suma delta al agregado sin bajar de cero.
func (r *RawMaterialRepo) AdjustStock(ctx context.Context, id string, delta decimal.Decimal) error {
	upd := psql.Update("raw_materials").
		Set("current_stock", squirrel.Expr("GREATEST(current_stock + ?, 0)", delta)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id})
	n, err := exec(ctx, r.q, upd, "adjust raw material stock")
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
