package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias externas salvo decimal).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrConcurrentUpdate  = errors.New("el stock del lote cambió durante la operación")
	ErrBatchNotFound     = errors.New("lote no encontrado")
	ErrLifecycle         = errors.New("operación no permitida para el estado del lote")
)

// Shortage describe el faltante de un material en un plan de asignación.
type Shortage struct {
	MaterialCode   string
	MaterialName   string
	Unit           string
	TotalRequired  decimal.Decimal
	TotalAvailable decimal.Decimal
	Shortfall      decimal.Decimal // TotalRequired - TotalAvailable
}

// ShortfallError uno o más materiales no cubren su requerimiento.
// Siempre contiene la lista completa de materiales insuficientes, nunca solo el primero.
type ShortfallError struct {
	Shortages []Shortage
}

func (e *ShortfallError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s (requerido %s, disponible %s, faltan %s)",
			s.MaterialCode, s.TotalRequired.String(), s.TotalAvailable.String(), s.Shortfall.String()))
	}
	return "stock insuficiente: " + strings.Join(parts, "; ")
}

func (e *ShortfallError) Unwrap() error { return ErrInsufficientStock }

// ConcurrencyAbortError el stock de un lote cambió entre la validación y el commit.
// Se considera también stock insuficiente para el usuario final.
type ConcurrencyAbortError struct {
	BatchID     string
	BatchNumber string
	Planned     decimal.Decimal
	Current     decimal.Decimal
}

func (e *ConcurrencyAbortError) Error() string {
	return fmt.Sprintf("lote %s: planificado %s, disponible %s", e.BatchNumber, e.Planned.String(), e.Current.String())
}

func (e *ConcurrencyAbortError) Unwrap() []error {
	return []error{ErrConcurrentUpdate, ErrInsufficientStock}
}

// MissingBatchError el lote referenciado ya no existe al momento del commit.
type MissingBatchError struct {
	BatchID     string
	BatchNumber string
}

func (e *MissingBatchError) Error() string {
	if e.BatchNumber != "" {
		return fmt.Sprintf("lote %s (%s) no existe", e.BatchNumber, e.BatchID)
	}
	return fmt.Sprintf("lote %s no existe", e.BatchID)
}

func (e *MissingBatchError) Unwrap() error { return ErrBatchNotFound }

// Motivos de rechazo del ciclo de vida de un lote.
const (
	ReasonZeroStock = "ZERO_STOCK" // recertificar un lote sin stock
	ReasonNoExpiry  = "NO_EXPIRY"  // recertificar un lote sin fecha de vencimiento
	ReasonTooLate   = "TOO_LATE"   // la extensión no alcanza a dejar el lote vigente
)

// LifecycleViolation operación de ciclo de vida rechazada; el lote no cambia.
type LifecycleViolation struct {
	BatchID string
	Reason  string
}

func (e *LifecycleViolation) Error() string {
	switch e.Reason {
	case ReasonZeroStock:
		return fmt.Sprintf("lote %s: no se puede recertificar sin stock", e.BatchID)
	case ReasonNoExpiry:
		return fmt.Sprintf("lote %s: no se puede recertificar sin fecha de vencimiento", e.BatchID)
	case ReasonTooLate:
		return fmt.Sprintf("lote %s: venció hace más de lo que cubre la recertificación", e.BatchID)
	}
	return fmt.Sprintf("lote %s: %s", e.BatchID, e.Reason)
}

func (e *LifecycleViolation) Unwrap() error { return ErrLifecycle }
