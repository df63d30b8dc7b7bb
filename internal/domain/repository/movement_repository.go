package repository

import (
	"context"

	"github.com/jhoicas/kardex/internal/domain/entity"
)

// MovementRepository define el puerto del libro de movimientos (append-only).
// No existe Update ni Delete: las correcciones son movimientos compensatorios.
type MovementRepository interface {
	// Append valida las invariantes, persiste la fila y la devuelve con ID y CreatedAt asignados.
	Append(ctx context.Context, movement *entity.Movement) (*entity.Movement, error)
	GetByID(ctx context.Context, branchID string, id int64) (*entity.Movement, error)
	ListByProduct(ctx context.Context, branchID, productID string, filter entity.MovementFilter) ([]*entity.Movement, error)
	// ListByTransfer devuelve las patas de un traslado visibles para la sucursal.
	ListByTransfer(ctx context.Context, branchID, transferID string) ([]*entity.Movement, error)
	// Scan recorre todo el libro en orden de ID (verificador de invariantes).
	Scan(ctx context.Context, fn func(*entity.Movement) error) error
}
