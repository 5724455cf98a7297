package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/dealer-stock-api/internal/domain"
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/internal/domain/inventory"
	"github.com/jhoicas/dealer-stock-api/internal/domain/repository"
)

// LifecycleUseCase consulta lotes con su estado derivado y los recertifica.
type LifecycleUseCase struct {
	batches          repository.BatchRepository
	recertifications repository.RecertificationRepository
	days             int
	deps             Deps
}

// NewLifecycleUseCase construye el caso de uso. days <= 0 usa la ventana por defecto (60).
func NewLifecycleUseCase(
	batches repository.BatchRepository,
	recertifications repository.RecertificationRepository,
	days int,
	deps Deps,
) *LifecycleUseCase {
	if days <= 0 {
		days = inventory.DefaultRecertificationDays
	}
	return &LifecycleUseCase{batches: batches, recertifications: recertifications, days: days, deps: deps.withDefaults()}
}

// RecertifyInput entrada de Recertify.
type RecertifyInput struct {
	BatchID string
	UserID  string
	Reason  string
}

// Recertify extiende el vencimiento del lote y agrega una fila de historial en la misma transacción.
func (uc *LifecycleUseCase) Recertify(ctx context.Context, in RecertifyInput) (*entity.Batch, *entity.RecertificationHistory, error) {
	if in.BatchID == "" || in.UserID == "" {
		return nil, nil, domain.ErrInvalidInput
	}
	var (
		batch   *entity.Batch
		history *entity.RecertificationHistory
	)
	err := uc.deps.Tx.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		b, err := repos.Batches.GetForUpdate(ctx, in.BatchID)
		if err != nil {
			return fmt.Errorf("lock batch %s: %w", in.BatchID, err)
		}
		if b == nil {
			return &domain.MissingBatchError{BatchID: in.BatchID}
		}
		h, err := inventory.Recertify(b, in.UserID, in.Reason, uc.days, uc.deps.Now())
		if err != nil {
			return err
		}
		if err := repos.Batches.UpdateRecertification(ctx, b); err != nil {
			return err
		}
		h.ID = uuid.New().String()
		if err := repos.Recertifications.Create(ctx, h); err != nil {
			return err
		}
		batch, history = b, h
		return nil
	})
	if err != nil {
		uc.deps.Log.Warn().Err(err).Str("batch_id", in.BatchID).Msg("recertificación rechazada")
		return nil, nil, err
	}

	batch.Status = inventory.EffectiveStatus(batch, uc.deps.Now())
	uc.deps.Observer.Recertified(batch.Scope.Kind)
	uc.deps.Log.Info().
		Str("batch_id", batch.ID).
		Str("batch_number", batch.BatchNumber).
		Time("old_expiry", history.OldExpiry).
		Time("new_expiry", history.NewExpiry).
		Int("count", batch.RecertificationCount).
		Msg("lote recertificado")
	publish(ctx, uc.deps.Events, uc.deps.Log, StockEvent{
		Type:          EventRecertify,
		Scope:         batch.Scope,
		ReferenceType: "BATCH",
		ReferenceID:   batch.ID,
		Movements:     []MovementEvent{},
		OccurredAt:    history.RecertifiedAt,
	})
	return batch, history, nil
}

// GetBatch devuelve un lote con su estado derivado al momento de la lectura.
func (uc *LifecycleUseCase) GetBatch(ctx context.Context, id string) (*entity.Batch, error) {
	b, err := uc.batches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, &domain.MissingBatchError{BatchID: id}
	}
	b.Status = inventory.EffectiveStatus(b, uc.deps.Now())
	return b, nil
}

// ListBatches lista lotes de un ámbito con estado derivado (EXPIRED se calcula aquí).
func (uc *LifecycleUseCase) ListBatches(ctx context.Context, filter repository.BatchFilter) ([]*entity.Batch, error) {
	if !filter.Scope.Valid() {
		return nil, domain.ErrInvalidInput
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	list, err := uc.batches.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := uc.deps.Now()
	for _, b := range list {
		b.Status = inventory.EffectiveStatus(b, now)
	}
	return list, nil
}

// History historial de recertificaciones de un lote, más reciente primero.
func (uc *LifecycleUseCase) History(ctx context.Context, batchID string) ([]*entity.RecertificationHistory, error) {
	return uc.recertifications.ListByBatch(ctx, batchID)
}
