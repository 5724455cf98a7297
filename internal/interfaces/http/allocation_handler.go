package http

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/dealer-stock-api/internal/application/dto"
	"github.com/jhoicas/dealer-stock-api/internal/application/inventory"
	"github.com/jhoicas/dealer-stock-api/internal/domain"
	domaininv "github.com/jhoicas/dealer-stock-api/internal/domain/inventory"
)

// planner lo implementa *inventory.AllocationUseCase.
type planner interface {
	ExpandAndAllocate(ctx context.Context, in inventory.PlanInput) (*domaininv.AllocationPlan, error)
}

// AllocationHandler vista previa de asignaciones FIFO (no modifica stock).
type AllocationHandler struct {
	uc     planner
	scopes scopeResolver
}

// NewAllocationHandler construye el handler.
func NewAllocationHandler(uc planner, warehouseID string) *AllocationHandler {
	return &AllocationHandler{uc: uc, scopes: scopeResolver{warehouseID: warehouseID}}
}

// Preview godoc
// @Summary      Vista previa de consumo de materiales
// @Description  Expande la receta del producto para el área indicada y asigna lotes FIFO
//
//	sin descontar stock. Si algún material no alcanza responde 422 con todos los faltantes.
//
// @Tags         allocations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PlanRequest  true  "product_id, area, ámbito"
// @Success      200   {object}  dto.PlanResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/allocations/preview [post]
func (h *AllocationHandler) Preview(c *fiber.Ctx) error {
	var in dto.PlanRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	if in.Area.IsNegative() {
		return writeError(c, fmt.Errorf("area negativa: %w", domain.ErrInvalidInput))
	}
	scope, err := h.scopes.resolve(c, in.ScopeKind, in.DealerID)
	if err != nil {
		return writeError(c, err)
	}
	plan, err := h.uc.ExpandAndAllocate(c.UserContext(), inventory.PlanInput{
		RecipeID:  in.RecipeID,
		ProductID: in.ProductID,
		Area:      in.Area,
		Scope:     scope,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toPlanResponse(plan))
}
