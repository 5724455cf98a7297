package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/internal/domain/repository"
	"github.com/jhoicas/dealer-stock-api/pkg/logger"
	"github.com/shopspring/decimal"
)

// TxRepos repositorios atados a una misma transacción.
type TxRepos struct {
	Batches          repository.BatchRepository
	Materials        repository.RawMaterialRepository
	Movements        repository.StockMovementRepository
	Recertifications repository.RecertificationRepository
	Warranties       repository.WarrantyRepository
	Deliveries       repository.DeliveryRepository
	Receipts         repository.ReceiptRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback y no queda ningún efecto parcial.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error
}

// Observer recibe los resultados del motor (métricas).
type Observer interface {
	Committed(scope string, batches int)
	Reversed(scope string, batches int)
	ShortfallDetected(scope string, materials int)
	ConcurrencyAborted(scope string)
	Recertified(scope string)
}

// EventPublisher publica eventos de stock después del commit. Un error no revierte nada.
type EventPublisher interface {
	Publish(ctx context.Context, event StockEvent) error
}

// ScopeLocker candado de mejor esfuerzo por ámbito. La corrección no depende de él:
// si no se obtiene, release es igualmente invocable y se sigue adelante.
type ScopeLocker interface {
	Acquire(ctx context.Context, key string) (release func())
}

// Reference documento que origina un movimiento y usuario que lo ejecuta.
type Reference struct {
	Type   string
	ID     string
	UserID string
}

// Movement movimiento explícito sobre un lote: Quantity > 0 restaura, < 0 retira.
// Si BatchID está vacío el lote se busca por (ámbito, código, número).
type Movement struct {
	BatchID      string
	BatchNumber  string
	MaterialID   string
	MaterialCode string
	Quantity     decimal.Decimal
	ReceivedDate time.Time
	ExpiryDate   *time.Time
}

// Tipos de evento de stock.
const (
	EventCommit    = "STOCK_COMMITTED"
	EventReversal  = "STOCK_REVERSED"
	EventReceipt   = "STOCK_RECEIVED"
	EventDelivery  = "STOCK_DELIVERED"
	EventRecertify = "BATCH_RECERTIFIED"
)

// StockEvent evento publicado tras una operación confirmada.
type StockEvent struct {
	Type          string          `json:"type"`
	Scope         entity.Scope    `json:"scope"`
	ReferenceType string          `json:"referenceType,omitempty"`
	ReferenceID   string          `json:"referenceId,omitempty"`
	Movements     []MovementEvent `json:"movements"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// MovementEvent línea de un StockEvent.
type MovementEvent struct {
	BatchID      string          `json:"batchId"`
	BatchNumber  string          `json:"batchNumber"`
	MaterialCode string          `json:"materialCode"`
	Scope        entity.Scope    `json:"scope"`
	Quantity     decimal.Decimal `json:"quantity"`
}

// Deps dependencias compartidas por los casos de uso del motor.
type Deps struct {
	Tx       TxRunner
	Observer Observer
	Events   EventPublisher
	Locker   ScopeLocker
	Log      *logger.Logger
	Now      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Observer == nil {
		d.Observer = NopObserver{}
	}
	if d.Events == nil {
		d.Events = NopPublisher{}
	}
	if d.Locker == nil {
		d.Locker = NopLocker{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// NopObserver no registra nada.
type NopObserver struct{}

func (NopObserver) Committed(string, int)         {}
func (NopObserver) Reversed(string, int)          {}
func (NopObserver) ShortfallDetected(string, int) {}
func (NopObserver) ConcurrencyAborted(string)     {}
func (NopObserver) Recertified(string)            {}

// NopPublisher descarta los eventos (Kafka no configurado).
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, StockEvent) error { return nil }

// NopLocker no bloquea (Redis no configurado).
type NopLocker struct{}

func (NopLocker) Acquire(context.Context, string) func() { return func() {} }
