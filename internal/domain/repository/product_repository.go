package repository

import (
	"context"

	"github.com/jhoicas/kardex/internal/domain/entity"
)

// ProductRepository consulta del maestro de productos (colaborador externo).
// GetByID devuelve nil, nil si no existe.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
}
