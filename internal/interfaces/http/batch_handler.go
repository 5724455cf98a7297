package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/dealer-stock-api/internal/application/dto"
	"github.com/jhoicas/dealer-stock-api/internal/application/inventory"
	"github.com/jhoicas/dealer-stock-api/internal/domain"
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/internal/domain/repository"
)

// batchService lo implementa *inventory.LifecycleUseCase.
type batchService interface {
	Recertify(ctx context.Context, in inventory.RecertifyInput) (*entity.Batch, *entity.RecertificationHistory, error)
	GetBatch(ctx context.Context, id string) (*entity.Batch, error)
	ListBatches(ctx context.Context, filter repository.BatchFilter) ([]*entity.Batch, error)
	History(ctx context.Context, batchID string) ([]*entity.RecertificationHistory, error)
}

// BatchHandler consulta de lotes y recertificación de vencimientos.
type BatchHandler struct {
	uc     batchService
	scopes scopeResolver
}

// NewBatchHandler construye el handler.
func NewBatchHandler(uc batchService, warehouseID string) *BatchHandler {
	return &BatchHandler{uc: uc, scopes: scopeResolver{warehouseID: warehouseID}}
}

// List godoc
// @Summary      Listar lotes de un ámbito
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Param        scope          query  string  false  "warehouse | dealer"
// @Param        owner_id       query  string  false  "ID del distribuidor (scope=dealer)"
// @Param        material_code  query  string  false  "Filtrar por material"
// @Param        in_stock       query  bool    false  "Solo lotes con stock"
// @Param        limit          query  int     false  "Límite"  default(50)
// @Param        offset         query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.BatchListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/batches [get]
func (h *BatchHandler) List(c *fiber.Ctx) error {
	var q dto.BatchListQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	if err := validate.Struct(q); err != nil {
		return validationError(c, err)
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}
	dealerID := ""
	if q.ScopeKind == entity.ScopeDealer {
		dealerID = q.OwnerID
	}
	scope, err := h.scopes.resolve(c, q.ScopeKind, dealerID)
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.uc.ListBatches(c.UserContext(), repository.BatchFilter{
		Scope:        scope,
		MaterialCode: q.MaterialCode,
		OnlyInStock:  q.InStock,
		Limit:        q.Limit,
		Offset:       q.Offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	out := dto.BatchListResponse{
		Items: make([]dto.BatchResponse, len(list)),
		Page:  dto.PageResponse{Limit: q.Limit, Offset: q.Offset, Total: len(list)},
	}
	for i, b := range list {
		out.Items[i] = toBatchResponse(b)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener lote
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del lote"
// @Success      200  {object}  dto.BatchResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/batches/{id} [get]
func (h *BatchHandler) GetByID(c *fiber.Ctx) error {
	b, err := h.visible(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toBatchResponse(b))
}

// Recertify godoc
// @Summary      Recertificar lote
// @Description  Extiende el vencimiento del lote y registra la auditoría. Rechaza lotes sin stock o sin vencimiento.
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del lote"
// @Param        body  body  dto.RecertifyRequest  false  "motivo"
// @Success      200   {object}  dto.RecertifyResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/batches/{id}/recertify [post]
func (h *BatchHandler) Recertify(c *fiber.Ctx) error {
	var in dto.RecertifyRequest
	if len(c.Body()) > 0 {
		if ok, err := parseBody(c, &in); !ok {
			return err
		}
	}
	b, hist, err := h.uc.Recertify(c.UserContext(), inventory.RecertifyInput{
		BatchID: c.Params("id"),
		UserID:  GetUserID(c),
		Reason:  in.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.RecertifyResponse{
		Batch:           toBatchResponse(b),
		Recertification: toRecertificationResponse(hist),
	})
}

// History godoc
// @Summary      Historial de recertificaciones de un lote
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del lote"
// @Success      200  {array}   dto.RecertificationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/batches/{id}/recertifications [get]
func (h *BatchHandler) History(c *fiber.Ctx) error {
	b, err := h.visible(c)
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.uc.History(c.UserContext(), b.ID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.RecertificationResponse, len(list))
	for i, r := range list {
		out[i] = toRecertificationResponse(r)
	}
	return c.JSON(out)
}

func (h *BatchHandler) visible(c *fiber.Ctx) (*entity.Batch, error) {
	b, err := h.uc.GetBatch(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if b.Scope.Kind == entity.ScopeWarehouse && !canSeeDealer(c, "") {
		return nil, &domain.MissingBatchError{BatchID: b.ID}
	}
	if b.Scope.IsDealer() && !canSeeDealer(c, b.Scope.OwnerID) {
		return nil, &domain.MissingBatchError{BatchID: b.ID}
	}
	return b, nil
}
