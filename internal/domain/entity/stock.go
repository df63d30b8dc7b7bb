package entity

import (
	"sort"

	"github.com/shopspring/decimal"
)

// StockKey identifica el agregado (producto, bodega) que se bloquea antes de agregar movimientos.
type StockKey struct {
	BranchID    string
	ProductID   string
	WarehouseID string
}

// SortStockKeys ordena las llaves por bodega ascendente y luego por producto.
// Todos los bloqueos se toman en este orden para que dos traslados opuestos no se bloqueen mutuamente.
func SortStockKeys(keys []StockKey) []StockKey {
	out := make([]StockKey, len(keys))
	copy(out, keys)
	sort.Slice(out, func(i, j int) bool {
		if out[i].WarehouseID != out[j].WarehouseID {
			return out[i].WarehouseID < out[j].WarehouseID
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// WarehouseBalance saldo derivado de un producto en una bodega.
type WarehouseBalance struct {
	WarehouseID string
	Quantity    decimal.Decimal
}

// MovementFilter filtro para el historial de movimientos.
type MovementFilter struct {
	WarehouseID string
	Limit       int
	Offset      int
}
