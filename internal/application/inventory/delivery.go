package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/dealer-stock-api/internal/domain"
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// DeliveryItemInput línea de un envío: lote de bodega y cantidad.
type DeliveryItemInput struct {
	WarehouseBatchID string
	Quantity         decimal.Decimal
}

// CreateDeliveryInput entrada para registrar un envío a un distribuidor.
type CreateDeliveryInput struct {
	DealerID string
	UserID   string
	Notes    string
	Items    []DeliveryItemInput
}

// DeliveryUseCase envíos bodega → distribuidor: descuenta lotes de bodega y crea o incrementa
// los lotes homónimos del distribuidor bajo una sola transacción.
type DeliveryUseCase struct {
	deliveries  repository.DeliveryRepository
	reversal    *ReversalUseCase
	warehouseID string
	deps        Deps
}

// NewDeliveryUseCase construye el caso de uso.
func NewDeliveryUseCase(deliveries repository.DeliveryRepository, reversal *ReversalUseCase, warehouseID string, deps Deps) *DeliveryUseCase {
	return &DeliveryUseCase{deliveries: deliveries, reversal: reversal, warehouseID: warehouseID, deps: deps.withDefaults()}
}

// Create descuenta cada lote de bodega y lo acredita al distribuidor. Si algún lote no alcanza
// se devuelve *domain.ShortfallError con todos los faltantes y nada cambia.
func (uc *DeliveryUseCase) Create(ctx context.Context, in CreateDeliveryInput) (*entity.Delivery, error) {
	if in.DealerID == "" || in.UserID == "" || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	for _, it := range in.Items {
		if it.WarehouseBatchID == "" || !it.Quantity.IsPositive() {
			return nil, domain.ErrInvalidInput
		}
	}
	warehouse := entity.WarehouseScope(uc.warehouseID)
	dealer := entity.DealerScope(in.DealerID)
	// orden fijo bodega → distribuidor
	releaseWh := uc.deps.Locker.Acquire(ctx, lockKey(warehouse))
	defer releaseWh()
	releaseDl := uc.deps.Locker.Acquire(ctx, lockKey(dealer))
	defer releaseDl()

	now := uc.deps.Now()
	delivery := &entity.Delivery{
		ID:          uuid.New().String(),
		DealerID:    in.DealerID,
		WarehouseID: uc.warehouseID,
		DeliveredBy: in.UserID,
		DeliveredAt: now,
		Notes:       in.Notes,
	}
	ref := Reference{Type: entity.ReferenceDelivery, ID: delivery.ID, UserID: in.UserID}

	var outMovs, inMovs []*entity.StockMovement
	err := uc.deps.Tx.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		items, err := uc.loadItems(ctx, repos, warehouse, delivery.ID, in.Items)
		if err != nil {
			return err
		}
		outList := make([]Movement, 0, len(items))
		inList := make([]Movement, 0, len(items))
		for _, it := range items {
			outList = append(outList, Movement{
				BatchID: it.WarehouseBatchID, BatchNumber: it.BatchNumber,
				MaterialID: it.MaterialID, MaterialCode: it.MaterialCode,
				Quantity: it.Quantity.Neg(),
			})
			inList = append(inList, Movement{
				BatchNumber: it.BatchNumber, MaterialID: it.MaterialID, MaterialCode: it.MaterialCode,
				Quantity: it.Quantity, ReceivedDate: it.ReceivedDate, ExpiryDate: it.ExpiryDate,
			})
		}
		if outMovs, err = uc.reversal.ApplyMovementsInTx(ctx, repos, warehouse, outList, ref, entity.MovementTypeDeliveryOut); err != nil {
			return err
		}
		if inMovs, err = uc.reversal.ApplyMovementsInTx(ctx, repos, dealer, inList, ref, entity.MovementTypeDeliveryIn); err != nil {
			return err
		}
		delivery.Items = items
		return repos.Deliveries.Create(ctx, delivery)
	})
	if err != nil {
		uc.deps.Log.Warn().Err(err).Str("dealer_id", in.DealerID).Msg("envío revertido")
		return nil, err
	}
	uc.deps.Log.Info().Str("delivery_id", delivery.ID).Str("dealer_id", in.DealerID).Int("items", len(delivery.Items)).Msg("envío registrado")
	publish(ctx, uc.deps.Events, uc.deps.Log, newEvent(EventDelivery, warehouse, ref, append(outMovs, inMovs...), uc.deps))
	return delivery, nil
}

// loadItems bloquea los lotes de bodega y valida que cada uno cubra lo pedido (sumando
// líneas repetidas del mismo lote).
func (uc *DeliveryUseCase) loadItems(ctx context.Context, repos TxRepos, warehouse entity.Scope, deliveryID string, inputs []DeliveryItemInput) ([]entity.DeliveryItem, error) {
	items := make([]entity.DeliveryItem, 0, len(inputs))
	requested := make(map[string]decimal.Decimal, len(inputs))
	batches := make(map[string]*entity.Batch, len(inputs))
	order := make([]string, 0, len(inputs))
	for _, it := range inputs {
		b, ok := batches[it.WarehouseBatchID]
		if !ok {
			var err error
			b, err = repos.Batches.GetForUpdate(ctx, it.WarehouseBatchID)
			if err != nil {
				return nil, fmt.Errorf("lock batch %s: %w", it.WarehouseBatchID, err)
			}
			if b == nil {
				return nil, &domain.MissingBatchError{BatchID: it.WarehouseBatchID}
			}
			if b.Scope != warehouse {
				return nil, fmt.Errorf("lote %s no pertenece a la bodega: %w", b.BatchNumber, domain.ErrInvalidInput)
			}
			batches[b.ID] = b
			order = append(order, b.ID)
		}
		requested[b.ID] = requested[b.ID].Add(it.Quantity)
		items = append(items, entity.DeliveryItem{
			ID:               uuid.New().String(),
			DeliveryID:       deliveryID,
			MaterialID:       b.MaterialID,
			MaterialCode:     b.MaterialCode,
			WarehouseBatchID: b.ID,
			BatchNumber:      b.BatchNumber,
			Quantity:         it.Quantity,
			ReceivedDate:     b.ReceivedDate,
			ExpiryDate:       b.ExpiryDate,
		})
	}
	var shortages []domain.Shortage
	for _, id := range order {
		b := batches[id]
		if b.CurrentStock.LessThan(requested[id]) {
			shortages = append(shortages, domain.Shortage{
				MaterialCode:   b.MaterialCode,
				TotalRequired:  requested[id],
				TotalAvailable: b.CurrentStock,
				Shortfall:      requested[id].Sub(b.CurrentStock),
			})
		}
	}
	if len(shortages) > 0 {
		return nil, &domain.ShortfallError{Shortages: shortages}
	}
	return items, nil
}

// Delete devuelve el stock a los lotes de bodega, lo retira de los del distribuidor
// (eliminando los que queden en cero) y borra el envío, en una transacción.
func (uc *DeliveryUseCase) Delete(ctx context.Context, id, userID string) error {
	current, err := uc.deliveries.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return domain.ErrNotFound
	}
	warehouse := entity.WarehouseScope(current.WarehouseID)
	dealer := entity.DealerScope(current.DealerID)
	releaseWh := uc.deps.Locker.Acquire(ctx, lockKey(warehouse))
	defer releaseWh()
	releaseDl := uc.deps.Locker.Acquire(ctx, lockKey(dealer))
	defer releaseDl()

	ref := Reference{Type: entity.ReferenceDelivery, ID: id, UserID: userID}
	var restored, withdrawn []*entity.StockMovement
	err = uc.deps.Tx.Run(ctx, func(ctx context.Context, repos TxRepos) error {
		d, err := repos.Deliveries.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if d == nil {
			return domain.ErrNotFound
		}
		back := make([]Movement, 0, len(d.Items))
		take := make([]Movement, 0, len(d.Items))
		for _, it := range d.Items {
			back = append(back, Movement{
				BatchID: it.WarehouseBatchID, BatchNumber: it.BatchNumber,
				MaterialID: it.MaterialID, MaterialCode: it.MaterialCode,
				Quantity: it.Quantity, ReceivedDate: it.ReceivedDate, ExpiryDate: it.ExpiryDate,
			})
			take = append(take, Movement{
				BatchNumber: it.BatchNumber, MaterialID: it.MaterialID, MaterialCode: it.MaterialCode,
				Quantity: it.Quantity.Neg(),
			})
		}
		if withdrawn, err = uc.reversal.ApplyMovementsInTx(ctx, repos, dealer, take, ref, entity.MovementTypeWithdraw); err != nil {
			return err
		}
		if restored, err = uc.reversal.ApplyMovementsInTx(ctx, repos, warehouse, back, ref, entity.MovementTypeRestore); err != nil {
			return err
		}
		return repos.Deliveries.Delete(ctx, id)
	})
	if err != nil {
		uc.deps.Log.Warn().Err(err).Str("delivery_id", id).Msg("eliminación de envío revertida")
		return err
	}
	uc.reversal.Reversed(ctx, warehouse, ref, restored)
	uc.reversal.Reversed(ctx, dealer, ref, withdrawn)
	return nil
}
