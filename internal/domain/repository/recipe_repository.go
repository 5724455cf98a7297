package repository

import (
	"context"

	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
)

// RecipeRepository puerto de recetas (BOM). Cada producto tiene una sola receta.
type RecipeRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Recipe, error)
	GetByProductID(ctx context.Context, productID string) (*entity.Recipe, error)
}
