package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/dealer-stock-api/internal/domain"
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// CommitUseCase descuenta un plan validado de forma atómica.
type CommitUseCase struct {
	deps Deps
}

// NewCommitUseCase construye el caso de uso.
func NewCommitUseCase(deps Deps) *CommitUseCase {
	return &CommitUseCase{deps: deps.withDefaults()}
}

// Commit abre su propia transacción, descuenta el plan y devuelve el registro de asignación.
// Ante cualquier fallo la transacción se revierte completa.
func (uc *CommitUseCase) Commit(ctx context.Context, plan *inventory.AllocationPlan, ref Reference) (entity.AllocationRecord, error) {
	release := uc.deps.Locker.Acquire(ctx, lockKey(plan.Scope))
	defer release()

	var (
		record    entity.AllocationRecord
		movements []*entity.StockMovement
	)
	err := uc.deps.Tx.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		var err error
		record, movements, err = uc.CommitInTx(ctx, repos, plan, ref)
		return err
	})
	if err != nil {
		uc.reportFailure(plan.Scope, ref, err)
		return entity.AllocationRecord{}, err
	}
	uc.Committed(ctx, plan.Scope, ref, movements)
	return record, nil
}

// Committed registra métricas, log y evento de un commit ya confirmado por el caller.
func (uc *CommitUseCase) Committed(ctx context.Context, scope entity.Scope, ref Reference, movements []*entity.StockMovement) {
	uc.deps.Observer.Committed(scope.Kind, len(movements))
	uc.deps.Log.Info().
		Str("scope", scope.String()).
		Str("reference_type", ref.Type).
		Str("reference_id", ref.ID).
		Int("batches", len(movements)).
		Msg("descuento de stock confirmado")
	publish(ctx, uc.deps.Events, uc.deps.Log, newEvent(EventCommit, scope, ref, movements, uc.deps))
}

func (uc *CommitUseCase) reportFailure(scope entity.Scope, ref Reference, err error) {
	var abort *domain.ConcurrencyAbortError
	if errors.As(err, &abort) {
		uc.deps.Observer.ConcurrencyAborted(scope.Kind)
		uc.deps.Log.Warn().
			Str("scope", scope.String()).
			Str("batch_number", abort.BatchNumber).
			Str("planned", abort.Planned.String()).
			Str("current", abort.Current.String()).
			Msg("stock del lote cambió entre validación y commit")
		return
	}
	uc.deps.Log.Error().Err(err).
		Str("scope", scope.String()).
		Str("reference_id", ref.ID).
		Msg("descuento de stock revertido")
}

// CommitInTx descuenta el plan con los repos de la transacción del caller.
// Cada lote se relee con bloqueo de fila y se decrementa solo si el stock sigue alcanzando.
func (uc *CommitUseCase) CommitInTx(ctx context.Context, repos TxRepos, plan *inventory.AllocationPlan, ref Reference) (entity.AllocationRecord, []*entity.StockMovement, error) {
	record := plan.Record()
	movements := make([]*entity.StockMovement, 0)
	now := uc.deps.Now()

	for _, mp := range plan.Materials {
		usage := record.Materials[mp.Material.Code]
		used := decimal.Zero
		for i, a := range usage.Batches {
			batch, err := repos.Batches.GetForUpdate(ctx, a.BatchID)
			if err != nil {
				return entity.AllocationRecord{}, nil, fmt.Errorf("lock batch %s: %w", a.BatchID, err)
			}
			if batch == nil {
				return entity.AllocationRecord{}, nil, &domain.MissingBatchError{BatchID: a.BatchID, BatchNumber: a.BatchNumber}
			}
			if batch.Scope != plan.Scope {
				return entity.AllocationRecord{}, nil, fmt.Errorf("lote %s fuera del ámbito %s: %w", a.BatchNumber, plan.Scope, domain.ErrInvalidInput)
			}
			// venció entre el plan y el bloqueo
			if inventory.IsExpired(batch, now) {
				return entity.AllocationRecord{}, nil, &domain.ConcurrencyAbortError{
					BatchID: a.BatchID, BatchNumber: a.BatchNumber, Planned: a.QuantityUsed, Current: batch.CurrentStock,
				}
			}
			if batch.CurrentStock.LessThan(a.QuantityUsed) {
				return entity.AllocationRecord{}, nil, &domain.ConcurrencyAbortError{
					BatchID: a.BatchID, BatchNumber: a.BatchNumber, Planned: a.QuantityUsed, Current: batch.CurrentStock,
				}
			}
			left := batch.CurrentStock.Sub(a.QuantityUsed)
			ok, err := repos.Batches.AdjustStock(ctx, batch.ID, a.QuantityUsed.Neg(), inventory.StatusForStock(left), now)
			if err != nil {
				return entity.AllocationRecord{}, nil, fmt.Errorf("decrement batch %s: %w", a.BatchNumber, err)
			}
			if !ok {
				return entity.AllocationRecord{}, nil, &domain.ConcurrencyAbortError{
					BatchID: a.BatchID, BatchNumber: a.BatchNumber, Planned: a.QuantityUsed, Current: batch.CurrentStock,
				}
			}
			// foto del stock previo al descuento, leída dentro de la tx
			usage.Batches[i].BatchStock = batch.CurrentStock

			mov := &entity.StockMovement{
				ID:            uuid.New().String(),
				BatchID:       batch.ID,
				BatchNumber:   batch.BatchNumber,
				MaterialCode:  mp.Material.Code,
				Scope:         plan.Scope,
				Type:          entity.MovementTypeDeduct,
				Quantity:      a.QuantityUsed.Neg(),
				ReferenceType: ref.Type,
				ReferenceID:   ref.ID,
				CreatedAt:     now,
				CreatedBy:     ref.UserID,
			}
			if err := repos.Movements.Create(ctx, mov); err != nil {
				return entity.AllocationRecord{}, nil, err
			}
			movements = append(movements, mov)
			used = used.Add(a.QuantityUsed)
		}
		if !plan.Scope.IsDealer() && used.IsPositive() {
			if err := adjustMaterialStock(ctx, repos, mp.Material.ID, mp.Material.Code, used.Neg()); err != nil {
				return entity.AllocationRecord{}, nil, err
			}
		}
		record.Materials[mp.Material.Code] = usage
	}
	return record, movements, nil
}
