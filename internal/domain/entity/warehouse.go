package entity

import "time"

// Warehouse representa una bodega; su sucursal determina la atribución de los movimientos.
type Warehouse struct {
	ID        string
	BranchID  string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
