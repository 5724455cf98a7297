package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/internal/domain/repository"
)

var _ repository.RecertificationRepository = (*RecertificationRepo)(nil)

// RecertificationRepo historial de recertificaciones (solo inserción).
type RecertificationRepo struct {
	q Querier
}

// NewRecertificationRepository construye el adaptador.
func NewRecertificationRepository(q Querier) *RecertificationRepo {
	return &RecertificationRepo{q: q}
}

type recertificationRow struct {
	ID            string    `db:"id"`
	BatchID       string    `db:"batch_id"`
	OldExpiry     time.Time `db:"old_expiry"`
	NewExpiry     time.Time `db:"new_expiry"`
	ExtendedDays  int       `db:"extended_days"`
	RecertifiedBy string    `db:"recertified_by"`
	RecertifiedAt time.Time `db:"recertified_at"`
	Reason        string    `db:"reason"`
}

// Create inserta una fila de historial.
func (r *RecertificationRepo) Create(ctx context.Context, h *entity.RecertificationHistory) error {
	ins := psql.Insert("batch_recertifications").
		Columns("id", "batch_id", "old_expiry", "new_expiry", "extended_days", "recertified_by", "recertified_at", "reason").
		Values(h.ID, h.BatchID, h.OldExpiry, h.NewExpiry, h.ExtendedDays, h.RecertifiedBy, h.RecertifiedAt, h.Reason)
	_, err := exec(ctx, r.q, ins, "insert recertification")
	return err
}

// ListByBatch historial del lote, más reciente primero.
func (r *RecertificationRepo) ListByBatch(ctx context.Context, batchID string) ([]*entity.RecertificationHistory, error) {
	sql, args, err := psql.Select("id", "batch_id", "old_expiry", "new_expiry", "extended_days", "recertified_by", "recertified_at", "reason").
		From("batch_recertifications").
		Where(squirrel.Eq{"batch_id": batchID}).
		OrderBy("recertified_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list recertifications: %w", err)
	}
	var rows []recertificationRow
	if err := pgxscan.Select(ctx, r.q, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select recertifications: %w", err)
	}
	out := make([]*entity.RecertificationHistory, 0, len(rows))
	for _, row := range rows {
		h := entity.RecertificationHistory(row)
		out = append(out, &h)
	}
	return out, nil
}
