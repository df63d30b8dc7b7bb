package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/kardex/internal/domain"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, domain.ErrLockTimeout},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, domain.ErrTransient},
		{"serialización", &pgconn.PgError{Code: "40001"}, domain.ErrTransient},
		{"fk producto", &pgconn.PgError{Code: "23503", ConstraintName: "stock_movements_product_id_fkey"}, domain.ErrNotFound},
		{"fk sucursal de bodega", &pgconn.PgError{Code: "23503", ConstraintName: warehouseBranchFK}, domain.ErrInvalidMovement},
		{"check", &pgconn.PgError{Code: "23514", ConstraintName: "stock_movements_quantity_nonzero"}, domain.ErrInvalidMovement},
		{"append-only", &pgconn.PgError{Code: "P0001"}, domain.ErrInvariantViolation},
		{"duplicado", &pgconn.PgError{Code: "23505"}, domain.ErrInvariantViolation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapError("op", tc.err)
			assert.ErrorIs(t, got, tc.want)
			var pgErr *pgconn.PgError
			assert.True(t, errors.As(got, &pgErr), "conserva el error original")
		})
	}
}

func TestMapError_Reintentables(t *testing.T) {
	assert.True(t, domain.IsRetryable(mapError("op", &pgconn.PgError{Code: "55P03"})))
	assert.True(t, domain.IsRetryable(mapError("op", &pgconn.PgError{Code: "40P01"})))
	assert.False(t, domain.IsRetryable(mapError("op", &pgconn.PgError{Code: "23514"})))
	assert.False(t, domain.IsRetryable(mapError("op", errors.New("otro"))))
}

func TestMapError_Nil(t *testing.T) {
	assert.NoError(t, mapError("op", nil))
}
