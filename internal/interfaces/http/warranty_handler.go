package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/dealer-stock-api/internal/application/dto"
	"github.com/jhoicas/dealer-stock-api/internal/application/inventory"
	"github.com/jhoicas/dealer-stock-api/internal/domain"
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/pkg/jwt"
	"github.com/shopspring/decimal"
)

// warrantyService lo implementa *inventory.WarrantyUseCase.
type warrantyService interface {
	Issue(ctx context.Context, in inventory.IssueWarrantyInput) (*entity.Warranty, error)
	UpdateArea(ctx context.Context, id string, area decimal.Decimal, userID string) (*entity.Warranty, error)
	Delete(ctx context.Context, id, userID string) error
	Get(ctx context.Context, id string) (*entity.Warranty, error)
}

// WarrantyHandler garantías de distribuidor: cada una consume materiales de sus lotes.
type WarrantyHandler struct {
	uc warrantyService
}

// NewWarrantyHandler construye el handler.
func NewWarrantyHandler(uc warrantyService) *WarrantyHandler {
	return &WarrantyHandler{uc: uc}
}

// Issue godoc
// @Summary      Emitir garantía
// @Tags         warranties
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.IssueWarrantyRequest  true  "product_id, area, customer_reference"
// @Success      201   {object}  dto.WarrantyResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/warranties [post]
func (h *WarrantyHandler) Issue(c *fiber.Ctx) error {
	var in dto.IssueWarrantyRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	dealerID := in.DealerID
	if GetRole(c) == jwt.RoleDealer {
		if dealerID != "" && dealerID != GetDealerID(c) {
			return writeError(c, domain.ErrForbidden)
		}
		dealerID = GetDealerID(c)
	}
	if dealerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "dealer_id es requerido"})
	}
	w, err := h.uc.Issue(c.UserContext(), inventory.IssueWarrantyInput{
		DealerID:          dealerID,
		ProductID:         in.ProductID,
		Area:              in.Area,
		CustomerReference: in.CustomerReference,
		UserID:            GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toWarrantyResponse(w))
}

// GetByID godoc
// @Summary      Obtener garantía
// @Tags         warranties
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la garantía"
// @Success      200  {object}  dto.WarrantyResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/warranties/{id} [get]
func (h *WarrantyHandler) GetByID(c *fiber.Ctx) error {
	w, err := h.owned(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toWarrantyResponse(w))
}

// Update godoc
// @Summary      Cambiar el área de una garantía
// @Description  Revierte el consumo anterior y vuelve a asignar para la nueva área en una sola transacción.
// @Tags         warranties
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la garantía"
// @Param        body  body  dto.UpdateWarrantyRequest  true  "area"
// @Success      200   {object}  dto.WarrantyResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/warranties/{id} [put]
func (h *WarrantyHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateWarrantyRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	if _, err := h.owned(c); err != nil {
		return writeError(c, err)
	}
	w, err := h.uc.UpdateArea(c.UserContext(), c.Params("id"), in.Area, GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toWarrantyResponse(w))
}

// Delete godoc
// @Summary      Eliminar garantía
// @Description  Devuelve los materiales consumidos a sus lotes (recreándolos si ya no existen).
// @Tags         warranties
// @Security     Bearer
// @Param        id   path  string  true  "ID de la garantía"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/warranties/{id} [delete]
func (h *WarrantyHandler) Delete(c *fiber.Ctx) error {
	if _, err := h.owned(c); err != nil {
		return writeError(c, err)
	}
	if err := h.uc.Delete(c.UserContext(), c.Params("id"), GetUserID(c)); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// owned carga la garantía y verifica que un distribuidor solo acceda a las suyas.
// A otro distribuidor se le responde 404 para no revelar la existencia.
func (h *WarrantyHandler) owned(c *fiber.Ctx) (*entity.Warranty, error) {
	w, err := h.uc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if !canSeeDealer(c, w.DealerID) {
		return nil, domain.ErrNotFound
	}
	return w, nil
}
