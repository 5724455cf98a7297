package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/dealer-stock-api/internal/domain"
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/internal/domain/inventory"
	"github.com/jhoicas/dealer-stock-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// PlanInput entrada de ExpandAndAllocate. RecipeID tiene prioridad sobre ProductID.
type PlanInput struct {
	RecipeID  string
	ProductID string
	Area      decimal.Decimal
	Scope     entity.Scope
}

// AllocationUseCase expande la receta y planifica el consumo FIFO sin modificar stock.
type AllocationUseCase struct {
	recipes repository.RecipeRepository
	batches repository.BatchRepository
	deps    Deps
}

// NewAllocationUseCase construye el caso de uso. batches es el repositorio fuera de transacción.
func NewAllocationUseCase(recipes repository.RecipeRepository, batches repository.BatchRepository, deps Deps) *AllocationUseCase {
	return &AllocationUseCase{recipes: recipes, batches: batches, deps: deps.withDefaults()}
}

// ExpandAndAllocate devuelve el plan o *domain.ShortfallError con todos los materiales faltantes.
func (uc *AllocationUseCase) ExpandAndAllocate(ctx context.Context, in PlanInput) (*inventory.AllocationPlan, error) {
	return uc.plan(ctx, uc.batches, in)
}

// PlanInTx igual que ExpandAndAllocate pero leyendo los lotes con los repos de la transacción del caller.
func (uc *AllocationUseCase) PlanInTx(ctx context.Context, repos TxRepos, in PlanInput) (*inventory.AllocationPlan, error) {
	return uc.plan(ctx, repos.Batches, in)
}

func (uc *AllocationUseCase) plan(ctx context.Context, batches repository.BatchRepository, in PlanInput) (*inventory.AllocationPlan, error) {
	if !in.Scope.Valid() {
		return nil, domain.ErrInvalidInput
	}
	recipe, err := uc.loadRecipe(ctx, in)
	if err != nil {
		return nil, err
	}
	reqs := inventory.ExpandRecipe(recipe, in.Area)
	if len(reqs) == 0 {
		return &inventory.AllocationPlan{Scope: in.Scope, Materials: []inventory.MaterialPlan{}}, nil
	}

	codes := make([]string, 0, len(reqs))
	for _, r := range reqs {
		codes = append(codes, r.Material.Code)
	}
	candidates, err := batches.ListCandidates(ctx, in.Scope, codes)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	byCode := make(map[string][]*entity.Batch, len(codes))
	for _, b := range candidates {
		byCode[b.MaterialCode] = append(byCode[b.MaterialCode], b)
	}
	now := uc.deps.Now()
	pool := make(map[string][]inventory.BatchSnapshot, len(byCode))
	for code, list := range byCode {
		pool[code] = inventory.Usable(list, now)
	}

	plan, err := inventory.ValidateSufficiency(in.Scope, reqs, pool)
	if err != nil {
		var shortfall *domain.ShortfallError
		if errors.As(err, &shortfall) {
			uc.deps.Observer.ShortfallDetected(in.Scope.Kind, len(shortfall.Shortages))
			uc.deps.Log.Info().
				Str("scope", in.Scope.String()).
				Int("materials", len(shortfall.Shortages)).
				Msg("stock insuficiente para el plan")
		}
		return nil, err
	}
	return plan, nil
}

func (uc *AllocationUseCase) loadRecipe(ctx context.Context, in PlanInput) (*entity.Recipe, error) {
	var (
		recipe *entity.Recipe
		err    error
	)
	switch {
	case in.RecipeID != "":
		recipe, err = uc.recipes.GetByID(ctx, in.RecipeID)
	case in.ProductID != "":
		recipe, err = uc.recipes.GetByProductID(ctx, in.ProductID)
	default:
		return nil, domain.ErrInvalidInput
	}
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, domain.ErrNotFound
	}
	return recipe, nil
}
