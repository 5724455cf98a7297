package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/dealer-stock-api/internal/domain"
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/internal/domain/repository"
)

var _ repository.WarrantyRepository = (*WarrantyRepo)(nil)

// WarrantyRepo garantías con el registro de asignación en una columna JSONB.
type WarrantyRepo struct {
	q Querier
}

// NewWarrantyRepository construye el adaptador.
func NewWarrantyRepository(q Querier) *WarrantyRepo {
	return &WarrantyRepo{q: q}
}

type warrantyRow struct {
	ID                string          `db:"id"`
	DealerID          string          `db:"dealer_id"`
	ProductID         string          `db:"product_id"`
	Area              decimal.Decimal `db:"area"`
	CustomerReference string          `db:"customer_reference"`
	IssuedBy          string          `db:"issued_by"`
	IssuedAt          time.Time       `db:"issued_at"`
	MaterialUsage     []byte          `db:"material_usage"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

var warrantyColumns = []string{
	"id", "dealer_id", "product_id", "area", "customer_reference",
	"issued_by", "issued_at", "material_usage", "updated_at",
}

// Create inserta la garantía con su registro de asignación.
func (r *WarrantyRepo) Create(ctx context.Context, w *entity.Warranty) error {
	usage, err := json.Marshal(w.MaterialUsage)
	if err != nil {
		return fmt.Errorf("marshal material usage: %w", err)
	}
	ins := psql.Insert("warranties").Columns(warrantyColumns...).Values(
		w.ID, w.DealerID, w.ProductID, w.Area, w.CustomerReference,
		w.IssuedBy, w.IssuedAt, usage, w.UpdatedAt,
	)
	_, err = exec(ctx, r.q, ins, "insert warranty")
	return err
}

// GetByID obtiene la garantía. nil, nil si no existe.
func (r *WarrantyRepo) GetByID(ctx context.Context, id string) (*entity.Warranty, error) {
	return r.get(ctx, psql.Select(warrantyColumns...).From("warranties").Where(squirrel.Eq{"id": id}))
}

// GetForUpdate obtiene la garantía bloqueando su fila.
func (r *WarrantyRepo) GetForUpdate(ctx context.Context, id string) (*entity.Warranty, error) {
	return r.get(ctx, psql.Select(warrantyColumns...).From("warranties").Where(squirrel.Eq{"id": id}).Suffix("FOR UPDATE"))
}

func (r *WarrantyRepo) get(ctx context.Context, q squirrel.SelectBuilder) (*entity.Warranty, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get warranty: %w", err)
	}
	var row warrantyRow
	if err := pgxscan.Get(ctx, r.q, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get warranty: %w", err)
	}
	w := &entity.Warranty{
		ID:                row.ID,
		DealerID:          row.DealerID,
		ProductID:         row.ProductID,
		Area:              row.Area,
		CustomerReference: row.CustomerReference,
		IssuedBy:          row.IssuedBy,
		IssuedAt:          row.IssuedAt,
		UpdatedAt:         row.UpdatedAt,
	}
	if err := json.Unmarshal(row.MaterialUsage, &w.MaterialUsage); err != nil {
		return nil, fmt.Errorf("unmarshal material usage: %w", err)
	}
	return w, nil
}

// Update reemplaza área y registro de asignación.
func (r *WarrantyRepo) Update(ctx context.Context, w *entity.Warranty) error {
	usage, err := json.Marshal(w.MaterialUsage)
	if err != nil {
		return fmt.Errorf("marshal material usage: %w", err)
	}
	upd := psql.Update("warranties").
		Set("area", w.Area).
		Set("customer_reference", w.CustomerReference).
		Set("material_usage", usage).
		Set("updated_at", w.UpdatedAt).
		Where(squirrel.Eq{"id": w.ID})
	n, err := exec(ctx, r.q, upd, "update warranty")
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina la garantía.
func (r *WarrantyRepo) Delete(ctx context.Context, id string) error {
	n, err := exec(ctx, r.q, psql.Delete("warranties").Where(squirrel.Eq{"id": id}), "delete warranty")
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
