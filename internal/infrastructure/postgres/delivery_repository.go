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

var _ repository.DeliveryRepository = (*DeliveryRepo)(nil)

// DeliveryRepo envíos y sus ítems (cabecera + detalle en la misma transacción).
type DeliveryRepo struct {
	q Querier
}

// NewDeliveryRepository construye el adaptador.
func NewDeliveryRepository(q Querier) *DeliveryRepo {
	return &DeliveryRepo{q: q}
}

type deliveryRow struct {
	ID          string    `db:"id"`
	DealerID    string    `db:"dealer_id"`
	WarehouseID string    `db:"warehouse_id"`
	DeliveredBy string    `db:"delivered_by"`
	DeliveredAt time.Time `db:"delivered_at"`
	Notes       string    `db:"notes"`
}

type deliveryItemRow struct {
	ID               string          `db:"id"`
	DeliveryID       string          `db:"delivery_id"`
	MaterialID       string          `db:"material_id"`
	MaterialCode     string          `db:"material_code"`
	WarehouseBatchID string          `db:"warehouse_batch_id"`
	BatchNumber      string          `db:"batch_number"`
	Quantity         decimal.Decimal `db:"quantity"`
	ReceivedDate     time.Time       `db:"received_date"`
	ExpiryDate       *time.Time      `db:"expiry_date"`
}

// Create inserta cabecera e ítems.
func (r *DeliveryRepo) Create(ctx context.Context, d *entity.Delivery) error {
	head := psql.Insert("deliveries").
		Columns("id", "dealer_id", "warehouse_id", "delivered_by", "delivered_at", "notes").
		Values(d.ID, d.DealerID, d.WarehouseID, d.DeliveredBy, d.DeliveredAt, d.Notes)
	if _, err := exec(ctx, r.q, head, "insert delivery"); err != nil {
		return err
	}
	if len(d.Items) == 0 {
		return nil
	}
	items := psql.Insert("delivery_items").Columns(
		"id", "delivery_id", "material_id", "warehouse_batch_id", "batch_number",
		"quantity", "received_date", "expiry_date",
	)
	for _, it := range d.Items {
		items = items.Values(it.ID, d.ID, it.MaterialID, it.WarehouseBatchID, it.BatchNumber,
			it.Quantity, it.ReceivedDate, it.ExpiryDate)
	}
	_, err := exec(ctx, r.q, items, "insert delivery items")
	return err
}

// GetByID obtiene el envío con sus ítems. nil, nil si no existe.
func (r *DeliveryRepo) GetByID(ctx context.Context, id string) (*entity.Delivery, error) {
	sql, args, err := psql.Select("id", "dealer_id", "warehouse_id", "delivered_by", "delivered_at", "notes").
		From("deliveries").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get delivery: %w", err)
	}
	var row deliveryRow
	if err := pgxscan.Get(ctx, r.q, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get delivery: %w", err)
	}

	sql, args, err = psql.Select(
		"i.id", "i.delivery_id", "i.material_id", "m.code AS material_code",
		"i.warehouse_batch_id", "i.batch_number", "i.quantity", "i.received_date", "i.expiry_date",
	).From("delivery_items i").
		Join("raw_materials m ON m.id = i.material_id").
		Where(squirrel.Eq{"i.delivery_id": id}).
		OrderBy("i.batch_number", "i.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build delivery items: %w", err)
	}
	var items []deliveryItemRow
	if err := pgxscan.Select(ctx, r.q, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select delivery items: %w", err)
	}

	d := &entity.Delivery{
		ID:          row.ID,
		DealerID:    row.DealerID,
		WarehouseID: row.WarehouseID,
		DeliveredBy: row.DeliveredBy,
		DeliveredAt: row.DeliveredAt,
		Notes:       row.Notes,
		Items:       make([]entity.DeliveryItem, 0, len(items)),
	}
	for _, it := range items {
		d.Items = append(d.Items, entity.DeliveryItem(it))
	}
	return d, nil
}

// Delete elimina el envío; los ítems caen por ON DELETE CASCADE.
func (r *DeliveryRepo) Delete(ctx context.Context, id string) error {
	n, err := exec(ctx, r.q, psql.Delete("deliveries").Where(squirrel.Eq{"id": id}), "delete delivery")
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
