package inventory

import (
	"time"

	"github.com/jhoicas/dealer-stock-api/internal/domain"
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// DefaultRecertificationDays ventana de extensión de vencimiento por recertificación.
const DefaultRecertificationDays = 60

// StatusForStock estado almacenado según el stock: cero => OUT_OF_STOCK.
func StatusForStock(stock decimal.Decimal) string {
	if stock.IsPositive() {
		return entity.BatchStatusAvailable
	}
	return entity.BatchStatusOutOfStock
}

// IsExpired vencido = tiene fecha de vencimiento anterior a now.
func IsExpired(b *entity.Batch, now time.Time) bool {
	return b.ExpiryDate != nil && b.ExpiryDate.Before(now)
}

// EffectiveStatus estado derivado al leer. EXPIRED solo aplica con stock restante.
func EffectiveStatus(b *entity.Batch, now time.Time) string {
	if !b.CurrentStock.IsPositive() {
		return entity.BatchStatusOutOfStock
	}
	if IsExpired(b, now) {
		return entity.BatchStatusExpired
	}
	return entity.BatchStatusAvailable
}

// Usable lotes que el asignador puede considerar: stock > 0 y no vencidos.
func Usable(batches []*entity.Batch, now time.Time) []BatchSnapshot {
	out := make([]BatchSnapshot, 0, len(batches))
	for _, b := range batches {
		if EffectiveStatus(b, now) == entity.BatchStatusAvailable {
			out = append(out, SnapshotOf(b))
		}
	}
	return out
}

// Recertify extiende el vencimiento del lote en days (DefaultRecertificationDays si days <= 0)
// y devuelve la fila de historial a persistir. Sin stock o sin vencimiento devuelve
// *domain.LifecycleViolation y el lote queda intacto.
func Recertify(b *entity.Batch, by, reason string, days int, now time.Time) (*entity.RecertificationHistory, error) {
	if !b.CurrentStock.IsPositive() {
		return nil, &domain.LifecycleViolation{BatchID: b.ID, Reason: domain.ReasonZeroStock}
	}
	if b.ExpiryDate == nil {
		return nil, &domain.LifecycleViolation{BatchID: b.ID, Reason: domain.ReasonNoExpiry}
	}
	if days <= 0 {
		days = DefaultRecertificationDays
	}
	oldExpiry := *b.ExpiryDate
	newExpiry := oldExpiry.AddDate(0, 0, days)
	if newExpiry.Before(now) {
		return nil, &domain.LifecycleViolation{BatchID: b.ID, Reason: domain.ReasonTooLate}
	}
	at := now

	b.ExpiryDate = &newExpiry
	b.Status = entity.BatchStatusAvailable
	b.IsRecertified = true
	b.RecertificationCount++
	b.LastRecertifiedAt = &at
	b.LastRecertifiedBy = by
	b.UpdatedAt = now

	return &entity.RecertificationHistory{
		BatchID:       b.ID,
		OldExpiry:     oldExpiry,
		NewExpiry:     newExpiry,
		ExtendedDays:  days,
		RecertifiedBy: by,
		RecertifiedAt: now,
		Reason:        reason,
	}, nil
}
