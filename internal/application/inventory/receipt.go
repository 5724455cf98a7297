package inventory

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/dealer-stock-api/internal/domain"
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/internal/domain/inventory"
	"github.com/jhoicas/dealer-stock-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// ReceiptItemInput línea de una recepción de bodega.
type ReceiptItemInput struct {
	MaterialCode string
	BatchNumber  string
	Quantity     decimal.Decimal
	ReceivedDate time.Time
	ExpiryDate   *time.Time
}

// CreateReceiptInput entrada para registrar una recepción.
type CreateReceiptInput struct {
	Supplier string
	UserID   string
	Items    []ReceiptItemInput
}

// ReceiptSheetParser convierte una hoja de cálculo en líneas de recepción.
type ReceiptSheetParser interface {
	Parse(r io.Reader) ([]ReceiptItemInput, error)
}

// ReceiptUseCase entradas de mercancía a bodega central: crean o incrementan lotes de bodega.
type ReceiptUseCase struct {
	receipts    repository.ReceiptRepository
	reversal    *ReversalUseCase
	parser      ReceiptSheetParser
	warehouseID string
	deps        Deps
}

// NewReceiptUseCase construye el caso de uso para la bodega warehouseID.
func NewReceiptUseCase(
	receipts repository.ReceiptRepository,
	reversal *ReversalUseCase,
	parser ReceiptSheetParser,
	warehouseID string,
	deps Deps,
) *ReceiptUseCase {
	return &ReceiptUseCase{
		receipts:    receipts,
		reversal:    reversal,
		parser:      parser,
		warehouseID: warehouseID,
		deps:        deps.withDefaults(),
	}
}

// Create registra la recepción, crea o incrementa cada lote, suma al agregado de la materia prima
// y deja un movimiento RECEIPT por línea. Todo en una transacción.
func (uc *ReceiptUseCase) Create(ctx context.Context, in CreateReceiptInput) (*entity.Receipt, error) {
	if in.UserID == "" || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	for _, it := range in.Items {
		if it.MaterialCode == "" || it.BatchNumber == "" || !it.Quantity.IsPositive() {
			return nil, domain.ErrInvalidInput
		}
		if it.ExpiryDate != nil && !it.ReceivedDate.IsZero() && it.ExpiryDate.Before(it.ReceivedDate) {
			return nil, domain.ErrInvalidInput
		}
	}
	scope := entity.WarehouseScope(uc.warehouseID)
	release := uc.deps.Locker.Acquire(ctx, lockKey(scope))
	defer release()

	now := uc.deps.Now()
	receipt := &entity.Receipt{
		ID:          uuid.New().String(),
		WarehouseID: uc.warehouseID,
		Supplier:    in.Supplier,
		ReceivedBy:  in.UserID,
		ReceivedAt:  now,
	}
	ref := Reference{Type: entity.ReferenceReceipt, ID: receipt.ID, UserID: in.UserID}

	var movements []*entity.StockMovement
	err := uc.deps.Tx.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		receipt.Items = make([]entity.ReceiptItem, 0, len(in.Items))
		for _, it := range in.Items {
			mat, err := repos.Materials.GetByCode(ctx, it.MaterialCode)
			if err != nil {
				return err
			}
			if mat == nil {
				return fmt.Errorf("materia prima %s: %w", it.MaterialCode, domain.ErrNotFound)
			}
			received := it.ReceivedDate
			if received.IsZero() {
				received = now
			}
			batch, err := uc.receive(ctx, repos, scope, mat, it, received, now)
			if err != nil {
				return err
			}
			if err := repos.Materials.AdjustStock(ctx, mat.ID, it.Quantity); err != nil {
				return fmt.Errorf("adjust material %s: %w", mat.Code, err)
			}
			mov := &entity.StockMovement{
				ID:            uuid.New().String(),
				BatchID:       batch.ID,
				BatchNumber:   batch.BatchNumber,
				MaterialCode:  mat.Code,
				Scope:         scope,
				Type:          entity.MovementTypeReceipt,
				Quantity:      it.Quantity,
				ReferenceType: ref.Type,
				ReferenceID:   ref.ID,
				CreatedAt:     now,
				CreatedBy:     in.UserID,
			}
			if err := repos.Movements.Create(ctx, mov); err != nil {
				return err
			}
			movements = append(movements, mov)
			receipt.Items = append(receipt.Items, entity.ReceiptItem{
				ID:           uuid.New().String(),
				ReceiptID:    receipt.ID,
				MaterialID:   mat.ID,
				MaterialCode: mat.Code,
				BatchID:      batch.ID,
				BatchNumber:  batch.BatchNumber,
				Quantity:     it.Quantity,
				ReceivedDate: received,
				ExpiryDate:   it.ExpiryDate,
			})
		}
		return repos.Receipts.Create(ctx, receipt)
	})
	if err != nil {
		uc.deps.Log.Error().Err(err).Int("items", len(in.Items)).Msg("recepción revertida")
		return nil, err
	}
	uc.deps.Log.Info().Str("receipt_id", receipt.ID).Int("items", len(receipt.Items)).Msg("recepción registrada")
	publish(ctx, uc.deps.Events, uc.deps.Log, newEvent(EventReceipt, scope, ref, movements, uc.deps))
	return receipt, nil
}

// receive incrementa el lote existente (mismo número en la bodega) o crea uno nuevo.
func (uc *ReceiptUseCase) receive(ctx context.Context, repos TxRepos, scope entity.Scope, mat *entity.RawMaterial, it ReceiptItemInput, received, now time.Time) (*entity.Batch, error) {
	existing, err := repos.Batches.GetByNumber(ctx, scope, mat.Code, it.BatchNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		ok, err := repos.Batches.AdjustStock(ctx, existing.ID, it.Quantity, inventory.StatusForStock(existing.CurrentStock.Add(it.Quantity)), now)
		if err != nil {
			return nil, fmt.Errorf("increment batch %s: %w", existing.BatchNumber, err)
		}
		if !ok {
			return nil, &domain.MissingBatchError{BatchID: existing.ID, BatchNumber: existing.BatchNumber}
		}
		return existing, nil
	}
	b := &entity.Batch{
		ID:           uuid.New().String(),
		MaterialID:   mat.ID,
		MaterialCode: mat.Code,
		Scope:        scope,
		BatchNumber:  it.BatchNumber,
		CurrentStock: it.Quantity,
		ReceivedDate: received,
		ExpiryDate:   it.ExpiryDate,
		Status:       entity.BatchStatusAvailable,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repos.Batches.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete retira lo recibido de cada lote y elimina la recepción. Si parte del stock ya se
// consumió, aborta sin cambios (ConcurrencyAbortError).
func (uc *ReceiptUseCase) Delete(ctx context.Context, id, userID string) error {
	scope := entity.WarehouseScope(uc.warehouseID)
	release := uc.deps.Locker.Acquire(ctx, lockKey(scope))
	defer release()

	ref := Reference{Type: entity.ReferenceReceipt, ID: id, UserID: userID}
	var movements []*entity.StockMovement
	err := uc.deps.Tx.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		r, err := repos.Receipts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return domain.ErrNotFound
		}
		list := make([]Movement, 0, len(r.Items))
		for _, it := range r.Items {
			list = append(list, Movement{
				BatchID:      it.BatchID,
				BatchNumber:  it.BatchNumber,
				MaterialID:   it.MaterialID,
				MaterialCode: it.MaterialCode,
				Quantity:     it.Quantity.Neg(),
			})
		}
		movements, err = uc.reversal.ApplyMovementsInTx(ctx, repos, scope, list, ref, entity.MovementTypeWithdraw)
		if err != nil {
			return err
		}
		return repos.Receipts.Delete(ctx, id)
	})
	if err != nil {
		uc.deps.Log.Warn().Err(err).Str("receipt_id", id).Msg("eliminación de recepción revertida")
		return err
	}
	uc.reversal.Reversed(ctx, scope, ref, movements)
	return nil
}

// ImportXLSX lee las líneas desde una hoja de cálculo y registra una sola recepción.
func (uc *ReceiptUseCase) ImportXLSX(ctx context.Context, r io.Reader, supplier, userID string) (*entity.Receipt, error) {
	if uc.parser == nil {
		return nil, fmt.Errorf("importación no configurada: %w", domain.ErrInvalidInput)
	}
	items, err := uc.parser.Parse(r)
	if err != nil {
		return nil, err
	}
	return uc.Create(ctx, CreateReceiptInput{Supplier: supplier, UserID: userID, Items: items})
}
