package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/dealer-stock-api/internal/domain"
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// ReversalUseCase restaura (o retira) stock a partir de un registro de asignación
// o de una lista explícita de movimientos.
type ReversalUseCase struct {
	deps Deps
}

// NewReversalUseCase construye el caso de uso.
func NewReversalUseCase(deps Deps) *ReversalUseCase {
	return &ReversalUseCase{deps: deps.withDefaults()}
}

// Reverse devuelve a sus lotes lo consumido por record, en una transacción propia.
func (uc *ReversalUseCase) Reverse(ctx context.Context, record entity.AllocationRecord, ref Reference) error {
	release := uc.deps.Locker.Acquire(ctx, lockKey(record.Scope))
	defer release()

	var movements []*entity.StockMovement
	err := uc.deps.Tx.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		var err error
		movements, err = uc.ReverseInTx(ctx, repos, record, ref)
		return err
	})
	if err != nil {
		uc.deps.Log.Error().Err(err).Str("scope", record.Scope.String()).Str("reference_id", ref.ID).Msg("reversión revertida")
		return err
	}
	uc.Reversed(ctx, record.Scope, ref, movements)
	return nil
}

// ReverseMovements aplica una lista explícita de movimientos en una transacción propia.
func (uc *ReversalUseCase) ReverseMovements(ctx context.Context, scope entity.Scope, list []Movement, ref Reference) error {
	release := uc.deps.Locker.Acquire(ctx, lockKey(scope))
	defer release()

	var movements []*entity.StockMovement
	err := uc.deps.Tx.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		var err error
		movements, err = uc.ApplyMovementsInTx(ctx, repos, scope, list, ref, "")
		return err
	})
	if err != nil {
		uc.deps.Log.Error().Err(err).Str("scope", scope.String()).Str("reference_id", ref.ID).Msg("reversión revertida")
		return err
	}
	uc.Reversed(ctx, scope, ref, movements)
	return nil
}

// Reversed registra métricas, log y evento de una reversión ya confirmada.
func (uc *ReversalUseCase) Reversed(ctx context.Context, scope entity.Scope, ref Reference, movements []*entity.StockMovement) {
	uc.deps.Observer.Reversed(scope.Kind, len(movements))
	uc.deps.Log.Info().
		Str("scope", scope.String()).
		Str("reference_type", ref.Type).
		Str("reference_id", ref.ID).
		Int("batches", len(movements)).
		Msg("stock restaurado")
	publish(ctx, uc.deps.Events, uc.deps.Log, newEvent(EventReversal, scope, ref, movements, uc.deps))
}

// ReverseInTx restaura cada lote del registro con los repos de la transacción del caller.
// Un lote que ya no existe se recrea con los datos del registro.
func (uc *ReversalUseCase) ReverseInTx(ctx context.Context, repos TxRepos, record entity.AllocationRecord, ref Reference) ([]*entity.StockMovement, error) {
	list := make([]Movement, 0)
	for _, code := range record.Codes() {
		usage := record.Materials[code]
		for _, a := range usage.Batches {
			list = append(list, Movement{
				BatchID:      a.BatchID,
				BatchNumber:  a.BatchNumber,
				MaterialID:   usage.MaterialID,
				MaterialCode: usage.Code,
				Quantity:     a.QuantityUsed,
				ReceivedDate: a.ReceivedDate,
				ExpiryDate:   a.ExpiryDate,
			})
		}
	}
	return uc.ApplyMovementsInTx(ctx, repos, record.Scope, list, ref, entity.MovementTypeRestore)
}

// ApplyMovementsInTx aplica movimientos explícitos dentro de la transacción del caller.
// Positivo restaura (recreando el lote si falta); negativo retira. Un lote de distribuidor
// que queda en cero por un retiro se elimina; uno de bodega queda en cero como OUT_OF_STOCK.
// movementType vacío usa RESTORE/WITHDRAW según el signo.
func (uc *ReversalUseCase) ApplyMovementsInTx(ctx context.Context, repos TxRepos, scope entity.Scope, list []Movement, ref Reference, movementType string) ([]*entity.StockMovement, error) {
	if !scope.Valid() {
		return nil, domain.ErrInvalidInput
	}
	now := uc.deps.Now()
	out := make([]*entity.StockMovement, 0, len(list))
	for _, m := range list {
		if m.Quantity.IsZero() {
			continue
		}
		batch, err := uc.findForUpdate(ctx, repos, scope, m)
		if err != nil {
			return nil, err
		}

		switch {
		case batch == nil && m.Quantity.IsPositive():
			batch, err = uc.recreate(ctx, repos, scope, m, now)
			if err != nil {
				return nil, err
			}
		case batch == nil:
			return nil, &domain.MissingBatchError{BatchID: m.BatchID, BatchNumber: m.BatchNumber}
		default:
			if err := uc.adjust(ctx, repos, scope, batch, m.Quantity, now); err != nil {
				return nil, err
			}
		}

		if !scope.IsDealer() {
			if err := adjustMaterialStock(ctx, repos, m.MaterialID, m.MaterialCode, m.Quantity); err != nil {
				return nil, err
			}
		}

		mt := movementType
		if mt == "" {
			mt = entity.MovementTypeRestore
			if m.Quantity.IsNegative() {
				mt = entity.MovementTypeWithdraw
			}
		}
		mov := &entity.StockMovement{
			ID:            uuid.New().String(),
			BatchID:       batch.ID,
			BatchNumber:   batch.BatchNumber,
			MaterialCode:  batch.MaterialCode,
			Scope:         scope,
			Type:          mt,
			Quantity:      m.Quantity,
			ReferenceType: ref.Type,
			ReferenceID:   ref.ID,
			CreatedAt:     now,
			CreatedBy:     ref.UserID,
		}
		if err := repos.Movements.Create(ctx, mov); err != nil {
			return nil, err
		}
		out = append(out, mov)
	}
	return out, nil
}

func (uc *ReversalUseCase) findForUpdate(ctx context.Context, repos TxRepos, scope entity.Scope, m Movement) (*entity.Batch, error) {
	if m.BatchID != "" {
		b, err := repos.Batches.GetForUpdate(ctx, m.BatchID)
		if err != nil {
			return nil, fmt.Errorf("lock batch %s: %w", m.BatchID, err)
		}
		if b != nil {
			if b.Scope != scope {
				return nil, fmt.Errorf("lote %s fuera del ámbito %s: %w", b.BatchNumber, scope, domain.ErrInvalidInput)
			}
			return b, nil
		}
	}
	if m.BatchNumber == "" || m.MaterialCode == "" {
		return nil, nil
	}
	// el lote pudo recrearse con otro id: se busca por número dentro del ámbito
	b, err := repos.Batches.GetByNumber(ctx, scope, m.MaterialCode, m.BatchNumber)
	if err != nil || b == nil {
		return nil, err
	}
	return repos.Batches.GetForUpdate(ctx, b.ID)
}

func (uc *ReversalUseCase) adjust(ctx context.Context, repos TxRepos, scope entity.Scope, batch *entity.Batch, delta decimal.Decimal, now time.Time) error {
	left := batch.CurrentStock.Add(delta)
	if left.IsNegative() {
		return &domain.ConcurrencyAbortError{
			BatchID: batch.ID, BatchNumber: batch.BatchNumber, Planned: delta.Neg(), Current: batch.CurrentStock,
		}
	}
	if left.IsZero() && scope.IsDealer() && delta.IsNegative() {
		if err := repos.Batches.Delete(ctx, batch.ID); err != nil {
			return fmt.Errorf("delete dealer batch %s: %w", batch.BatchNumber, err)
		}
		return nil
	}
	ok, err := repos.Batches.AdjustStock(ctx, batch.ID, delta, inventory.StatusForStock(left), now)
	if err != nil {
		return fmt.Errorf("adjust batch %s: %w", batch.BatchNumber, err)
	}
	if !ok {
		return &domain.ConcurrencyAbortError{
			BatchID: batch.ID, BatchNumber: batch.BatchNumber, Planned: delta.Neg(), Current: batch.CurrentStock,
		}
	}
	return nil
}

func (uc *ReversalUseCase) recreate(ctx context.Context, repos TxRepos, scope entity.Scope, m Movement, now time.Time) (*entity.Batch, error) {
	materialID := m.MaterialID
	if materialID == "" {
		mat, err := repos.Materials.GetByCode(ctx, m.MaterialCode)
		if err != nil {
			return nil, err
		}
		if mat == nil {
			return nil, fmt.Errorf("materia prima %s: %w", m.MaterialCode, domain.ErrNotFound)
		}
		materialID = mat.ID
	}
	id := m.BatchID
	if id == "" {
		id = uuid.New().String()
	}
	received := m.ReceivedDate
	if received.IsZero() {
		received = now
	}
	b := &entity.Batch{
		ID:           id,
		MaterialID:   materialID,
		MaterialCode: m.MaterialCode,
		Scope:        scope,
		BatchNumber:  m.BatchNumber,
		CurrentStock: m.Quantity,
		ReceivedDate: received,
		ExpiryDate:   m.ExpiryDate,
		Status:       entity.BatchStatusAvailable,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repos.Batches.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("recreate batch %s: %w", m.BatchNumber, err)
	}
	return b, nil
}

// adjustMaterialStock mueve el agregado de bodega de la materia prima. Si no
// viene el ID se resuelve por código; una materia desconocida no se toca.
func adjustMaterialStock(ctx context.Context, repos TxRepos, materialID, code string, delta decimal.Decimal) error {
	if materialID == "" {
		mat, err := repos.Materials.GetByCode(ctx, code)
		if err != nil {
			return err
		}
		if mat == nil {
			return nil
		}
		materialID = mat.ID
	}
	if err := repos.Materials.AdjustStock(ctx, materialID, delta); err != nil {
		return fmt.Errorf("adjust material %s: %w", code, err)
	}
	return nil
}
