package inventory

import (
	"context"

	"github.com/jhoicas/kardex/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Los bloqueos tomados con locks se liberan al terminar (Commit o Rollback); si fn devuelve error
// no queda ninguna fila agregada.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		ledger repository.MovementRepository,
		stock repository.StockQueryRepository,
		locks repository.StockLockRepository,
	) error) error
}
