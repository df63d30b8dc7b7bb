package repository

import (
	"context"

	"github.com/jhoicas/kardex/internal/domain/entity"
)

// WarehouseRepository consulta del maestro de bodegas (colaborador externo).
// GetByID devuelve nil, nil si no existe.
type WarehouseRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Warehouse, error)
}
