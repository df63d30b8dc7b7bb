package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/kardex/internal/domain/entity"
	"github.com/jhoicas/kardex/internal/domain/repository"
)

var _ repository.StockQueryRepository = (*StockQueryRepo)(nil)

// StockQueryRepo agrega el libro con una sola consulta por operación (usable con pool o tx).
// Usa COALESCE para devolver cero si no hay movimientos.
type StockQueryRepo struct {
	q Querier
}

// NewStockQueryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockQueryRepository(q Querier) *StockQueryRepo {
	return &StockQueryRepo{q: q}
}

func (r *StockQueryRepo) SumQuantity(ctx context.Context, branchID, productID, warehouseID string) (decimal.Decimal, error) {
	const query = `
		SELECT COALESCE(SUM(quantity), 0)
		FROM stock_movements
		WHERE branch_id = $1 AND product_id = $2
		  AND ($3::text = '' OR warehouse_id = $3::text)`
	var sum decimal.Decimal
	if err := r.q.QueryRow(ctx, query, branchID, productID, warehouseID).Scan(&sum); err != nil {
		return decimal.Zero, mapError("sum quantity", err)
	}
	return sum, nil
}

func (r *StockQueryRepo) SumByWarehouse(ctx context.Context, branchID, productID string) ([]entity.WarehouseBalance, error) {
	const query = `
		SELECT warehouse_id, SUM(quantity)
		FROM stock_movements
		WHERE branch_id = $1 AND product_id = $2
		GROUP BY warehouse_id
		ORDER BY warehouse_id`
	rows, err := r.q.Query(ctx, query, branchID, productID)
	if err != nil {
		return nil, mapError("sum by warehouse", err)
	}
	defer rows.Close()
	var out []entity.WarehouseBalance
	for rows.Next() {
		var b entity.WarehouseBalance
		if err := rows.Scan(&b.WarehouseID, &b.Quantity); err != nil {
			return nil, fmt.Errorf("scan warehouse balance: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("sum by warehouse", err)
	}
	return out, nil
}

func (r *StockQueryRepo) SumValue(ctx context.Context, branchID, productID, warehouseID string) (decimal.Decimal, error) {
	const query = `
		SELECT COALESCE(SUM(quantity * COALESCE(unit_cost, 0)), 0)
		FROM stock_movements
		WHERE branch_id = $1 AND product_id = $2
		  AND ($3::text = '' OR warehouse_id = $3::text)`
	var sum decimal.Decimal
	if err := r.q.QueryRow(ctx, query, branchID, productID, warehouseID).Scan(&sum); err != nil {
		return decimal.Zero, mapError("sum value", err)
	}
	return sum, nil
}
