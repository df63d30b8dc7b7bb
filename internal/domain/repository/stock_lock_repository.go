package repository

import (
	"context"

	"github.com/jhoicas/kardex/internal/domain/entity"
)

// StockLockRepository bloqueo pesimista de los agregados (producto, bodega).
// Sólo tiene sentido dentro de una transacción; los bloqueos se liberan en Commit/Rollback.
type StockLockRepository interface {
	// Lock bloquea las llaves en el orden recibido. Devuelve domain.ErrLockTimeout si se agota la espera.
	Lock(ctx context.Context, keys []entity.StockKey) error
	// Bump incrementa la versión del agregado tras agregar movimientos.
	Bump(ctx context.Context, key entity.StockKey) error
}
