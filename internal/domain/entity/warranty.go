package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Warranty garantía emitida por un distribuidor; su emisión consume materiales de los
// lotes del distribuidor y guarda el registro de asignación para poder revertirlo.
type Warranty struct {
	ID                string
	DealerID          string
	ProductID         string
	Area              decimal.Decimal
	CustomerReference string
	IssuedBy          string
	IssuedAt          time.Time
	MaterialUsage     AllocationRecord
	UpdatedAt         time.Time
}
