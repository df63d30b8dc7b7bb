package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/kardex/internal/application/dto"
	"github.com/jhoicas/kardex/internal/domain"
	"github.com/jhoicas/kardex/pkg/logger"
)

// retryAfterSeconds sugerencia al cliente tras un LockTimeout o fallo transitorio.
const retryAfterSeconds = 1

// writeError traduce la taxonomía de errores del dominio a HTTP.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	var insufficient *domain.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		return c.Status(fiber.StatusConflict).JSON(dto.InsufficientStockResponse{
			Code:      "INSUFFICIENT_STOCK",
			Message:   "stock insuficiente en la bodega origen",
			Available: insufficient.Available,
			Requested: insufficient.Requested,
		})
	case errors.Is(err, domain.ErrInvalidArgument):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	case domain.IsRetryable(err):
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds))
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "LOCK_TIMEOUT", Message: "recurso ocupado, reintente"})
	case errors.Is(err, domain.ErrInvariantViolation):
		log.Error().Err(err).Str("path", c.Path()).Msg("violación de invariante")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INVARIANT_VIOLATION", Message: "error interno"})
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("error no controlado")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
	}
}
