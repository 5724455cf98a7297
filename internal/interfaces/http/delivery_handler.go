package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/dealer-stock-api/internal/application/dto"
	"github.com/jhoicas/dealer-stock-api/internal/application/inventory"
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
)

// deliveryService lo implementa *inventory.DeliveryUseCase.
type deliveryService interface {
	Create(ctx context.Context, in inventory.CreateDeliveryInput) (*entity.Delivery, error)
	Delete(ctx context.Context, id, userID string) error
}

// DeliveryHandler envíos de bodega central a distribuidores.
type DeliveryHandler struct {
	uc deliveryService
}

// NewDeliveryHandler construye el handler.
func NewDeliveryHandler(uc deliveryService) *DeliveryHandler {
	return &DeliveryHandler{uc: uc}
}

// Create godoc
// @Summary      Registrar envío a distribuidor
// @Description  Descuenta de los lotes de bodega y crea o incrementa los lotes homónimos del distribuidor.
// @Tags         deliveries
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateDeliveryRequest  true  "distribuidor y líneas"
// @Success      201   {object}  dto.DeliveryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/deliveries [post]
func (h *DeliveryHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateDeliveryRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	items := make([]inventory.DeliveryItemInput, len(in.Items))
	for i, it := range in.Items {
		items[i] = inventory.DeliveryItemInput{WarehouseBatchID: it.WarehouseBatchID, Quantity: it.Quantity}
	}
	d, err := h.uc.Create(c.UserContext(), inventory.CreateDeliveryInput{
		DealerID: in.DealerID,
		UserID:   GetUserID(c),
		Notes:    in.Notes,
		Items:    items,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toDeliveryResponse(d))
}

// Delete godoc
// @Summary      Anular envío
// @Tags         deliveries
// @Security     Bearer
// @Param        id   path  string  true  "ID del envío"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/deliveries/{id} [delete]
func (h *DeliveryHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.UserContext(), c.Params("id"), GetUserID(c)); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
