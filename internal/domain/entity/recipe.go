package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unidades de cálculo de una receta. Solo PER_UNIT_AREA se usa activamente.
const (
	CalculationUnitPerArea = "PER_UNIT_AREA"
	CalculationUnitPerUnit = "PER_UNIT"
)

// Recipe lista de materiales (BOM) de un producto.
type Recipe struct {
	ID              string
	ProductID       string
	Name            string
	CalculationUnit string
	Items           []RecipeItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RecipeItem cantidad de una materia prima por unidad de área instalada.
type RecipeItem struct {
	ID              string
	RecipeID        string
	MaterialID      string
	MaterialCode    string
	MaterialName    string
	MaterialType    string
	Unit            string
	QuantityPerUnit decimal.Decimal
}
