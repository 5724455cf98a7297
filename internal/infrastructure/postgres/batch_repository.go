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

var _ repository.BatchRepository = (*BatchRepo)(nil)

// BatchRepo implementación de BatchRepository sobre PostgreSQL (usable con pool o tx).
// Bodega y distribuidores comparten la tabla batches, separados por (scope_kind, scope_owner_id).
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

type batchRow struct {
	ID                   string          `db:"id"`
	MaterialID           string          `db:"material_id"`
	MaterialCode         string          `db:"material_code"`
	ScopeKind            string          `db:"scope_kind"`
	ScopeOwnerID         string          `db:"scope_owner_id"`
	BatchNumber          string          `db:"batch_number"`
	CurrentStock         decimal.Decimal `db:"current_stock"`
	ReceivedDate         time.Time       `db:"received_date"`
	ExpiryDate           *time.Time      `db:"expiry_date"`
	Status               string          `db:"status"`
	IsRecertified        bool            `db:"is_recertified"`
	RecertificationCount int             `db:"recertification_count"`
	LastRecertifiedAt    *time.Time      `db:"last_recertified_at"`
	LastRecertifiedBy    string          `db:"last_recertified_by"`
	CreatedAt            time.Time       `db:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at"`
}

func (r batchRow) toEntity() *entity.Batch {
	return &entity.Batch{
		ID:                   r.ID,
		MaterialID:           r.MaterialID,
		MaterialCode:         r.MaterialCode,
		Scope:                entity.Scope{Kind: r.ScopeKind, OwnerID: r.ScopeOwnerID},
		BatchNumber:          r.BatchNumber,
		CurrentStock:         r.CurrentStock,
		ReceivedDate:         r.ReceivedDate,
		ExpiryDate:           r.ExpiryDate,
		Status:               r.Status,
		IsRecertified:        r.IsRecertified,
		RecertificationCount: r.RecertificationCount,
		LastRecertifiedAt:    r.LastRecertifiedAt,
		LastRecertifiedBy:    r.LastRecertifiedBy,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

func selectBatches() squirrel.SelectBuilder {
	return psql.Select(
		"b.id", "b.material_id", "m.code AS material_code",
		"b.scope_kind", "b.scope_owner_id", "b.batch_number", "b.current_stock",
		"b.received_date", "b.expiry_date", "b.status",
		"b.is_recertified", "b.recertification_count", "b.last_recertified_at", "b.last_recertified_by",
		"b.created_at", "b.updated_at",
	).From("batches b").Join("raw_materials m ON m.id = b.material_id")
}

func scopeEq(scope entity.Scope) squirrel.Eq {
	return squirrel.Eq{"b.scope_kind": scope.Kind, "b.scope_owner_id": scope.OwnerID}
}

func (r *BatchRepo) getOne(ctx context.Context, b squirrel.SelectBuilder, op string) (*entity.Batch, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", op, err)
	}
	var row batchRow
	if err := pgxscan.Get(ctx, r.q, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return row.toEntity(), nil
}

func (r *BatchRepo) getMany(ctx context.Context, b squirrel.SelectBuilder, op string) ([]*entity.Batch, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", op, err)
	}
	var rows []batchRow
	if err := pgxscan.Select(ctx, r.q, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]*entity.Batch, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

// Create inserta un lote. Duplicado (mismo número en el ámbito) => domain.ErrDuplicate.
func (r *BatchRepo) Create(ctx context.Context, b *entity.Batch) error {
	ins := psql.Insert("batches").Columns(
		"id", "material_id", "scope_kind", "scope_owner_id", "batch_number", "current_stock",
		"received_date", "expiry_date", "status",
		"is_recertified", "recertification_count", "last_recertified_at", "last_recertified_by",
		"created_at", "updated_at",
	).Values(
		b.ID, b.MaterialID, b.Scope.Kind, b.Scope.OwnerID, b.BatchNumber, b.CurrentStock,
		b.ReceivedDate, b.ExpiryDate, b.Status,
		b.IsRecertified, b.RecertificationCount, b.LastRecertifiedAt, b.LastRecertifiedBy,
		b.CreatedAt, b.UpdatedAt,
	)
	if _, err := exec(ctx, r.q, ins, "insert batch"); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("lote %s: %w", b.BatchNumber, domain.ErrDuplicate)
		}
		return err
	}
	return nil
}

// GetByID obtiene un lote por ID. nil, nil si no existe.
func (r *BatchRepo) GetByID(ctx context.Context, id string) (*entity.Batch, error) {
	return r.getOne(ctx, selectBatches().Where(squirrel.Eq{"b.id": id}), "get batch")
}

// GetForUpdate obtiene el lote y bloquea su fila (SELECT FOR UPDATE).
func (r *BatchRepo) GetForUpdate(ctx context.Context, id string) (*entity.Batch, error) {
	return r.getOne(ctx, selectBatches().Where(squirrel.Eq{"b.id": id}).Suffix("FOR UPDATE OF b"), "get batch for update")
}

// GetByNumber busca por (ámbito, código de material, número de lote).
func (r *BatchRepo) GetByNumber(ctx context.Context, scope entity.Scope, materialCode, batchNumber string) (*entity.Batch, error) {
	q := selectBatches().
		Where(scopeEq(scope)).
		Where(squirrel.Eq{"m.code": materialCode, "b.batch_number": batchNumber})
	return r.getOne(ctx, q, "get batch by number")
}

// ListCandidates lotes con stock de los materiales pedidos en orden FIFO (recepción, alta, id).
// El vencimiento se evalúa en la capa de aplicación con el reloj inyectado.
func (r *BatchRepo) ListCandidates(ctx context.Context, scope entity.Scope, materialCodes []string) ([]*entity.Batch, error) {
	if len(materialCodes) == 0 {
		return []*entity.Batch{}, nil
	}
	q := selectBatches().
		Where(scopeEq(scope)).
		Where(squirrel.Eq{"m.code": materialCodes}).
		Where(squirrel.Gt{"b.current_stock": 0}).
		OrderBy("b.received_date", "b.created_at", "b.id")
	return r.getMany(ctx, q, "list candidate batches")
}

// List lista los lotes de un ámbito con filtros opcionales.
func (r *BatchRepo) List(ctx context.Context, f repository.BatchFilter) ([]*entity.Batch, error) {
	q := selectBatches().Where(scopeEq(f.Scope))
	if f.MaterialCode != "" {
		q = q.Where(squirrel.Eq{"m.code": f.MaterialCode})
	}
	if f.OnlyInStock {
		q = q.Where(squirrel.Gt{"b.current_stock": 0})
	}
	q = q.OrderBy("m.code", "b.received_date", "b.created_at")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	return r.getMany(ctx, q, "list batches")
}

// AdjustStock suma delta solo si el stock no queda negativo. false si la condición no se cumplió.
func (r *BatchRepo) AdjustStock(ctx context.Context, id string, delta decimal.Decimal, status string, at time.Time) (bool, error) {
	n, err := exec(ctx, r.q, adjustStockQuery(id, delta, status, at), "adjust batch stock")
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// adjustStockQuery la condición en el WHERE evita que dos descuentos concurrentes dejen stock negativo.
func adjustStockQuery(id string, delta decimal.Decimal, status string, at time.Time) squirrel.UpdateBuilder {
	return psql.Update("batches").
		Set("current_stock", squirrel.Expr("current_stock + ?", delta)).
		Set("status", status).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Expr("current_stock + ? >= 0", delta))
}

// UpdateRecertification persiste vencimiento, estado y contadores de recertificación.
func (r *BatchRepo) UpdateRecertification(ctx context.Context, b *entity.Batch) error {
	upd := psql.Update("batches").
		Set("expiry_date", b.ExpiryDate).
		Set("status", b.Status).
		Set("is_recertified", b.IsRecertified).
		Set("recertification_count", b.RecertificationCount).
		Set("last_recertified_at", b.LastRecertifiedAt).
		Set("last_recertified_by", b.LastRecertifiedBy).
		Set("updated_at", b.UpdatedAt).
		Where(squirrel.Eq{"id": b.ID})
	n, err := exec(ctx, r.q, upd, "update batch recertification")
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina el lote (solo lotes de distribuidor vaciados).
func (r *BatchRepo) Delete(ctx context.Context, id string) error {
	_, err := exec(ctx, r.q, psql.Delete("batches").Where(squirrel.Eq{"id": id}), "delete batch")
	return err
}
