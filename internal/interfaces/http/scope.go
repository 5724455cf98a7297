package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/dealer-stock-api/internal/domain"
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/pkg/jwt"
)

// scopeResolver decide sobre qué pool opera una petición.
// Un distribuidor solo ve su propio stock; admin y bodega eligen ámbito.
type scopeResolver struct {
	warehouseID string
}

func (r scopeResolver) resolve(c *fiber.Ctx, kind, dealerID string) (entity.Scope, error) {
	if GetRole(c) == jwt.RoleDealer {
		own := GetDealerID(c)
		if own == "" || kind == entity.ScopeWarehouse || (dealerID != "" && dealerID != own) {
			return entity.Scope{}, domain.ErrForbidden
		}
		return entity.DealerScope(own), nil
	}
	if kind == entity.ScopeDealer || (kind == "" && dealerID != "") {
		if dealerID == "" {
			return entity.Scope{}, domain.ErrInvalidInput
		}
		return entity.DealerScope(dealerID), nil
	}
	return entity.WarehouseScope(r.warehouseID), nil
}

// canSeeDealer indica si el usuario puede operar documentos del distribuidor.
func canSeeDealer(c *fiber.Ctx, dealerID string) bool {
	if GetRole(c) != jwt.RoleDealer {
		return true
	}
	return GetDealerID(c) == dealerID
}
