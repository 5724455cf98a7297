package inventory

import (
	"context"

	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/pkg/logger"
)

// lockKey clave del candado de mejor esfuerzo para un ámbito.
func lockKey(scope entity.Scope) string {
	return "stock:" + scope.String()
}

func newEvent(eventType string, scope entity.Scope, ref Reference, movements []*entity.StockMovement, d Deps) StockEvent {
	ev := StockEvent{
		Type:          eventType,
		Scope:         scope,
		ReferenceType: ref.Type,
		ReferenceID:   ref.ID,
		Movements:     make([]MovementEvent, 0, len(movements)),
		OccurredAt:    d.Now(),
	}
	for _, m := range movements {
		ev.Movements = append(ev.Movements, MovementEvent{
			BatchID:      m.BatchID,
			BatchNumber:  m.BatchNumber,
			MaterialCode: m.MaterialCode,
			Scope:        m.Scope,
			Quantity:     m.Quantity,
		})
	}
	return ev
}

// publish envía el evento después del commit; un fallo solo se registra.
func publish(ctx context.Context, events EventPublisher, log *logger.Logger, ev StockEvent) {
	if len(ev.Movements) == 0 && ev.Type != EventRecertify {
		return
	}
	if err := events.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).
			Str("event", ev.Type).
			Str("scope", ev.Scope.String()).
			Str("reference_id", ev.ReferenceID).
			Msg("no se pudo publicar evento de stock")
	}
}
