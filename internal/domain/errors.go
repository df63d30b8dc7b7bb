package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio del kardex.
var (
	ErrInvalidArgument    = errors.New("argumento inválido")
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrLockTimeout        = errors.New("tiempo de espera de bloqueo agotado")
	ErrTransient          = errors.New("fallo transitorio de infraestructura")
	ErrInvariantViolation = errors.New("violación de invariante del libro")
)

// ErrInvalidMovement se devuelve cuando un movimiento no cumple las invariantes en el borde del libro.
var ErrInvalidMovement = fmt.Errorf("movimiento inválido: %w", ErrInvariantViolation)

// InsufficientStockError detalla el faltante de un traslado rechazado.
type InsufficientStockError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente: disponible %s, solicitado %s", e.Available.String(), e.Requested.String())
}

// Is permite errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// IsRetryable indica si la operación puede repetirse completa sin riesgo (no hay estado parcial).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrTransient)
}
