package inventory

import (
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// MaterialRef datos descriptivos de una materia prima que viajan con el requerimiento.
type MaterialRef struct {
	ID   string
	Code string
	Name string
	Type string
	Unit string
}

// QuantityScale decimales con que se almacenan stock y movimientos (NUMERIC(18,4)).
const QuantityScale = 4

// Requirement cantidad absoluta requerida de un material para un área instalada.
type Requirement struct {
	Material        MaterialRef
	QuantityPerUnit decimal.Decimal
	Required        decimal.Decimal
}

// ExpandRecipe convierte la receta por unidad de área en cantidades absolutas (quantityPerUnit × area).
// Si la unidad de cálculo no es PER_UNIT_AREA o area <= 0 devuelve lista vacía, sin error.
// No consulta stock. Ítems repetidos del mismo material se suman en un solo requerimiento.
// Required se redondea hacia arriba a QuantityScale para que lo validado sea lo que se persiste.
func ExpandRecipe(recipe *entity.Recipe, area decimal.Decimal) []Requirement {
	if recipe == nil || recipe.CalculationUnit != entity.CalculationUnitPerArea || !area.IsPositive() {
		return []Requirement{}
	}
	out := make([]Requirement, 0, len(recipe.Items))
	index := make(map[string]int, len(recipe.Items))
	for _, item := range recipe.Items {
		required := item.QuantityPerUnit.Mul(area)
		if i, ok := index[item.MaterialCode]; ok {
			out[i].QuantityPerUnit = out[i].QuantityPerUnit.Add(item.QuantityPerUnit)
			out[i].Required = out[i].Required.Add(required)
			continue
		}
		index[item.MaterialCode] = len(out)
		out = append(out, Requirement{
			Material: MaterialRef{
				ID:   item.MaterialID,
				Code: item.MaterialCode,
				Name: item.MaterialName,
				Type: item.MaterialType,
				Unit: item.Unit,
			},
			QuantityPerUnit: item.QuantityPerUnit,
			Required:        required,
		})
	}
	for i := range out {
		out[i].Required = out[i].Required.RoundUp(QuantityScale)
	}
	return out
}
