package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawMaterial representa un tipo de materia prima identificado por código único.
// CurrentStock es el agregado de bodega central, independiente del stock por lote.
type RawMaterial struct {
	ID           string
	Code         string
	Name         string
	Type         string
	Unit         string
	CurrentStock decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
