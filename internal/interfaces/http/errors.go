package http

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/dealer-stock-api/internal/application/dto"
	"github.com/jhoicas/dealer-stock-api/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// parseBody decodifica y valida el body. Si falla ya escribió la respuesta 400 y devuelve false.
func parseBody(c *fiber.Ctx, out any) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := validate.Struct(out); err != nil {
		return false, validationError(c, err)
	}
	return true, nil
}

func validationError(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Namespace()] = fe.Tag()
	}
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos", Details: fields})
}

// writeError traduce errores de dominio a respuestas HTTP.
func writeError(c *fiber.Ctx, err error) error {
	var (
		shortfall *domain.ShortfallError
		abort     *domain.ConcurrencyAbortError
		missing   *domain.MissingBatchError
		lifecycle *domain.LifecycleViolation
	)
	switch {
	case errors.As(err, &shortfall):
		details := make([]dto.ShortageDTO, len(shortfall.Shortages))
		for i, s := range shortfall.Shortages {
			details[i] = dto.ShortageDTO{
				MaterialCode:   s.MaterialCode,
				MaterialName:   s.MaterialName,
				Unit:           s.Unit,
				TotalRequired:  s.TotalRequired,
				TotalAvailable: s.TotalAvailable,
				Shortfall:      s.Shortfall,
			}
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente para uno o más materiales", Details: details,
		})
	case errors.As(err, &abort):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code: "INSUFFICIENT_STOCK", Message: "el stock cambió durante la operación, intente de nuevo",
			Details: fiber.Map{"batch_id": abort.BatchID, "batch_number": abort.BatchNumber},
		})
	case errors.As(err, &missing):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Code: "BATCH_NOT_FOUND", Message: missing.Error(), Details: fiber.Map{"batch_id": missing.BatchID},
		})
	case errors.As(err, &lifecycle):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: lifecycle.Reason, Message: lifecycle.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
