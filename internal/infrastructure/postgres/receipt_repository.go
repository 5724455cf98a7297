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

var _ repository.ReceiptRepository = (*ReceiptRepo)(nil)

// ReceiptRepo recepciones de bodega y sus ítems.
type ReceiptRepo struct {
	q Querier
}

// NewReceiptRepository construye el adaptador.
func NewReceiptRepository(q Querier) *ReceiptRepo {
	return &ReceiptRepo{q: q}
}

type receiptRow struct {
	ID          string    `db:"id"`
	WarehouseID string    `db:"warehouse_id"`
	Supplier    string    `db:"supplier"`
	ReceivedBy  string    `db:"received_by"`
	ReceivedAt  time.Time `db:"received_at"`
}

type receiptItemRow struct {
	ID           string          `db:"id"`
	ReceiptID    string          `db:"receipt_id"`
	MaterialID   string          `db:"material_id"`
	MaterialCode string          `db:"material_code"`
	BatchID      string          `db:"batch_id"`
	BatchNumber  string          `db:"batch_number"`
	Quantity     decimal.Decimal `db:"quantity"`
	ReceivedDate time.Time       `db:"received_date"`
	ExpiryDate   *time.Time      `db:"expiry_date"`
}

// Create inserta cabecera e ítems.
func (r *ReceiptRepo) Create(ctx context.Context, rc *entity.Receipt) error {
	head := psql.Insert("receipts").
		Columns("id", "warehouse_id", "supplier", "received_by", "received_at").
		Values(rc.ID, rc.WarehouseID, rc.Supplier, rc.ReceivedBy, rc.ReceivedAt)
	if _, err := exec(ctx, r.q, head, "insert receipt"); err != nil {
		return err
	}
	if len(rc.Items) == 0 {
		return nil
	}
	items := psql.Insert("receipt_items").Columns(
		"id", "receipt_id", "material_id", "batch_id", "batch_number", "quantity", "received_date", "expiry_date",
	)
	for _, it := range rc.Items {
		items = items.Values(it.ID, rc.ID, it.MaterialID, it.BatchID, it.BatchNumber, it.Quantity, it.ReceivedDate, it.ExpiryDate)
	}
	_, err := exec(ctx, r.q, items, "insert receipt items")
	return err
}

// GetByID obtiene la recepción con sus ítems. nil, nil si no existe.
func (r *ReceiptRepo) GetByID(ctx context.Context, id string) (*entity.Receipt, error) {
	sql, args, err := psql.Select("id", "warehouse_id", "supplier", "received_by", "received_at").
		From("receipts").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get receipt: %w", err)
	}
	var row receiptRow
	if err := pgxscan.Get(ctx, r.q, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get receipt: %w", err)
	}

	sql, args, err = psql.Select(
		"i.id", "i.receipt_id", "i.material_id", "m.code AS material_code",
		"i.batch_id", "i.batch_number", "i.quantity", "i.received_date", "i.expiry_date",
	).From("receipt_items i").
		Join("raw_materials m ON m.id = i.material_id").
		Where(squirrel.Eq{"i.receipt_id": id}).
		OrderBy("i.batch_number", "i.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build receipt items: %w", err)
	}
	var items []receiptItemRow
	if err := pgxscan.Select(ctx, r.q, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select receipt items: %w", err)
	}

	rc := &entity.Receipt{
		ID:          row.ID,
		WarehouseID: row.WarehouseID,
		Supplier:    row.Supplier,
		ReceivedBy:  row.ReceivedBy,
		ReceivedAt:  row.ReceivedAt,
		Items:       make([]entity.ReceiptItem, 0, len(items)),
	}
	for _, it := range items {
		rc.Items = append(rc.Items, entity.ReceiptItem(it))
	}
	return rc, nil
}

// Delete elimina la recepción; los ítems caen por ON DELETE CASCADE.
func (r *ReceiptRepo) Delete(ctx context.Context, id string) error {
	n, err := exec(ctx, r.q, psql.Delete("receipts").Where(squirrel.Eq{"id": id}), "delete receipt")
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
