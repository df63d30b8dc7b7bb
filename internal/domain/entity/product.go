package entity

import "time"

// Tipos de producto.
const (
	ProductTypeGoods   = "goods"   // bien físico, lleva existencias
	ProductTypeService = "service" // servicio, sin existencias
)

// Product vista mínima del maestro de productos que necesita el kardex.
// El CRUD del maestro vive fuera de este servicio.
type Product struct {
	ID             string
	BranchID       string
	SKU            string
	Name           string
	Type           string
	IsStockTracked bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Stockable indica si el producto admite movimientos de existencias.
func (p *Product) Stockable() bool {
	return p.IsStockTracked && p.Type != ProductTypeService
}
