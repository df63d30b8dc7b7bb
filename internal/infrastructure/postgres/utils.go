package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/kardex/internal/domain"
)

// Códigos SQLSTATE que el kardex traduce a errores de dominio.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeLockNotAvailable    = "55P03"
	codeDeadlockDetected    = "40P01"
	codeSerialization       = "40001"
	codeRaiseException      = "P0001"
)

const warehouseBranchFK = "stock_movements_warehouse_branch_fkey"

// mapError traduce errores de PostgreSQL a la taxonomía del dominio conservando el error original.
//
//	55P03         -> ErrLockTimeout (lock_timeout agotado)
//	40P01, 40001  -> ErrTransient (deadlock / serialización)
//	23503         -> ErrNotFound, salvo bodega de otra sucursal -> ErrInvalidMovement
//	23514         -> ErrInvalidMovement (CHECK del libro)
//	23505, P0001  -> ErrInvariantViolation (identidad duplicada / trigger append-only)
//	conexión      -> ErrTransient
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeLockNotAvailable:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrLockTimeout, err)
		case codeDeadlockDetected, codeSerialization:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrTransient, err)
		case codeForeignKeyViolation:
			if pgErr.ConstraintName == warehouseBranchFK {
				return fmt.Errorf("%s: %w: %w", op, domain.ErrInvalidMovement, err)
			}
			return fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, err)
		case codeCheckViolation:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrInvalidMovement, err)
		case codeUniqueViolation, codeRaiseException:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrInvariantViolation, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// nullString convierte "" en NULL.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
