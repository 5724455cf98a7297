package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/internal/domain/repository"
)

var _ repository.RecipeRepository = (*RecipeRepo)(nil)

// RecipeRepo recetas (BOM) con sus ítems y los datos de cada materia prima.
type RecipeRepo struct {
	q Querier
}

// NewRecipeRepository construye el adaptador.
func NewRecipeRepository(q Querier) *RecipeRepo {
	return &RecipeRepo{q: q}
}

type recipeRow struct {
	ID              string    `db:"id"`
	ProductID       string    `db:"product_id"`
	Name            string    `db:"name"`
	CalculationUnit string    `db:"calculation_unit"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

type recipeItemRow struct {
	ID              string          `db:"id"`
	RecipeID        string          `db:"recipe_id"`
	MaterialID      string          `db:"material_id"`
	MaterialCode    string          `db:"material_code"`
	MaterialName    string          `db:"material_name"`
	MaterialType    string          `db:"material_type"`
	Unit            string          `db:"unit"`
	QuantityPerUnit decimal.Decimal `db:"quantity_per_unit"`
}

// GetByID obtiene la receta con sus ítems. nil, nil si no existe.
func (r *RecipeRepo) GetByID(ctx context.Context, id string) (*entity.Recipe, error) {
	return r.get(ctx, squirrel.Eq{"id": id})
}

// GetByProductID obtiene la receta del producto. nil, nil si no existe.
func (r *RecipeRepo) GetByProductID(ctx context.Context, productID string) (*entity.Recipe, error) {
	return r.get(ctx, squirrel.Eq{"product_id": productID})
}

func (r *RecipeRepo) get(ctx context.Context, where squirrel.Eq) (*entity.Recipe, error) {
	sql, args, err := psql.Select("id", "product_id", "name", "calculation_unit", "created_at", "updated_at").
		From("recipes").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get recipe: %w", err)
	}
	var row recipeRow
	if err := pgxscan.Get(ctx, r.q, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}

	sql, args, err = psql.Select(
		"i.id", "i.recipe_id", "i.material_id",
		"m.code AS material_code", "m.name AS material_name", "m.type AS material_type", "m.unit",
		"i.quantity_per_unit",
	).From("recipe_items i").
		Join("raw_materials m ON m.id = i.material_id").
		Where(squirrel.Eq{"i.recipe_id": row.ID}).
		OrderBy("m.code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recipe items: %w", err)
	}
	var items []recipeItemRow
	if err := pgxscan.Select(ctx, r.q, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select recipe items: %w", err)
	}

	recipe := &entity.Recipe{
		ID:              row.ID,
		ProductID:       row.ProductID,
		Name:            row.Name,
		CalculationUnit: row.CalculationUnit,
		Items:           make([]entity.RecipeItem, 0, len(items)),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	for _, it := range items {
		recipe.Items = append(recipe.Items, entity.RecipeItem(it))
	}
	return recipe, nil
}
