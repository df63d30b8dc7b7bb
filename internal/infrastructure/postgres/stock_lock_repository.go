package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/kardex/internal/domain"
	"github.com/jhoicas/kardex/internal/domain/entity"
	"github.com/jhoicas/kardex/internal/domain/repository"
)

var _ repository.StockLockRepository = (*StockLockRepo)(nil)

// StockLockRepo bloqueo pesimista de agregados vía filas de stock_locks (sólo con tx).
// La fila se crea en el primer uso; el bloqueo dura hasta Commit/Rollback.
type StockLockRepo struct {
	q Querier
}

// NewStockLockRepository construye el adaptador. Debe recibir una pgx.Tx.
func NewStockLockRepository(q Querier) *StockLockRepo {
	return &StockLockRepo{q: q}
}

// Lock crea (si falta) y bloquea con FOR UPDATE cada agregado, en el orden recibido.
func (r *StockLockRepo) Lock(ctx context.Context, keys []entity.StockKey) error {
	const ensure = `
		INSERT INTO stock_locks (product_id, warehouse_id, branch_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id, warehouse_id) DO NOTHING`
	const lock = `
		SELECT version FROM stock_locks
		WHERE product_id = $1 AND warehouse_id = $2
		FOR UPDATE`
	for _, k := range keys {
		if _, err := r.q.Exec(ctx, ensure, k.ProductID, k.WarehouseID, k.BranchID); err != nil {
			return mapError(fmt.Sprintf("ensure stock lock %s/%s", k.ProductID, k.WarehouseID), err)
		}
		var version int64
		if err := r.q.QueryRow(ctx, lock, k.ProductID, k.WarehouseID).Scan(&version); err != nil {
			return mapError(fmt.Sprintf("lock stock %s/%s", k.ProductID, k.WarehouseID), err)
		}
	}
	return nil
}

// Bump incrementa la versión del agregado ya bloqueado.
func (r *StockLockRepo) Bump(ctx context.Context, key entity.StockKey) error {
	const query = `
		UPDATE stock_locks SET version = version + 1, updated_at = now()
		WHERE product_id = $1 AND warehouse_id = $2`
	cmd, err := r.q.Exec(ctx, query, key.ProductID, key.WarehouseID)
	if err != nil {
		return mapError("bump stock version", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: versión de agregado sin bloqueo", domain.ErrInvariantViolation)
	}
	return nil
}
