package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/kardex/internal/domain/entity"
)

// StockQueryRepository agrega el libro en una sola consulta por operación.
// warehouseID vacío significa todas las bodegas de la sucursal.
type StockQueryRepository interface {
	SumQuantity(ctx context.Context, branchID, productID, warehouseID string) (decimal.Decimal, error)
	SumByWarehouse(ctx context.Context, branchID, productID string) ([]entity.WarehouseBalance, error)
	// SumValue suma cantidad * costo unitario, con costo ausente como cero.
	SumValue(ctx context.Context, branchID, productID, warehouseID string) (decimal.Decimal, error)
}
