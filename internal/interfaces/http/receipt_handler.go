package http

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/dealer-stock-api/internal/application/dto"
	"github.com/jhoicas/dealer-stock-api/internal/application/inventory"
	"github.com/jhoicas/dealer-stock-api/internal/domain"
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
)

const dateLayout = "2006-01-02"

// receiptService lo implementa *inventory.ReceiptUseCase.
type receiptService interface {
	Create(ctx context.Context, in inventory.CreateReceiptInput) (*entity.Receipt, error)
	Delete(ctx context.Context, id, userID string) error
	ImportXLSX(ctx context.Context, r io.Reader, supplier, userID string) (*entity.Receipt, error)
}

// ReceiptHandler entradas de mercancía a bodega central.
type ReceiptHandler struct {
	uc receiptService
}

// NewReceiptHandler construye el handler.
func NewReceiptHandler(uc receiptService) *ReceiptHandler {
	return &ReceiptHandler{uc: uc}
}

// Create godoc
// @Summary      Registrar recepción en bodega
// @Tags         receipts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateReceiptRequest  true  "proveedor y líneas"
// @Success      201   {object}  dto.ReceiptResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/receipts [post]
func (h *ReceiptHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateReceiptRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	items := make([]inventory.ReceiptItemInput, len(in.Items))
	for i, it := range in.Items {
		item, err := toReceiptItem(it)
		if err != nil {
			return writeError(c, fmt.Errorf("items[%d]: %w", i, err))
		}
		items[i] = item
	}
	r, err := h.uc.Create(c.UserContext(), inventory.CreateReceiptInput{
		Supplier: in.Supplier,
		UserID:   GetUserID(c),
		Items:    items,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toReceiptResponse(r))
}

// Import godoc
// @Summary      Importar recepción desde Excel
// @Description  Columnas: material, lote, cantidad, fecha de recepción (opcional), vencimiento (opcional).
// @Tags         receipts
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        file      formData  file    true   "Archivo .xlsx"
// @Param        supplier  formData  string  false  "Proveedor"
// @Success      201  {object}  dto.ReceiptResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/receipts/import [post]
func (h *ReceiptHandler) Import(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_FILE", Message: "campo file requerido"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_FILE", Message: "no se pudo leer el archivo"})
	}
	defer f.Close()

	r, err := h.uc.ImportXLSX(c.UserContext(), f, c.FormValue("supplier"), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toReceiptResponse(r))
}

// Delete godoc
// @Summary      Anular recepción
// @Description  Retira de los lotes de bodega lo que entró con la recepción. Falla si ese stock ya salió.
// @Tags         receipts
// @Security     Bearer
// @Param        id   path  string  true  "ID de la recepción"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/receipts/{id} [delete]
func (h *ReceiptHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.UserContext(), c.Params("id"), GetUserID(c)); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func toReceiptItem(it dto.ReceiptItemRequest) (inventory.ReceiptItemInput, error) {
	if !it.Quantity.IsPositive() {
		return inventory.ReceiptItemInput{}, fmt.Errorf("quantity debe ser mayor a cero: %w", domain.ErrInvalidInput)
	}
	out := inventory.ReceiptItemInput{
		MaterialCode: it.MaterialCode,
		BatchNumber:  it.BatchNumber,
		Quantity:     it.Quantity,
	}
	// el formato ya lo validó el tag datetime
	if it.ReceivedDate != "" {
		out.ReceivedDate, _ = time.Parse(dateLayout, it.ReceivedDate)
	}
	if it.ExpiryDate != "" {
		d, _ := time.Parse(dateLayout, it.ExpiryDate)
		out.ExpiryDate = &d
	}
	return out, nil
}
