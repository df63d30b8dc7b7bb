package dto

import "github.com/shopspring/decimal"

// QuantityResponse saldo de un producto; WarehouseID vacío = total de la sucursal.
type QuantityResponse struct {
	ProductID   string          `json:"product_id"`
	WarehouseID string          `json:"warehouse_id,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// WarehouseQuantityDTO saldo en una bodega.
type WarehouseQuantityDTO struct {
	WarehouseID string          `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// BreakdownResponse saldo por bodega.
type BreakdownResponse struct {
	ProductID  string                 `json:"product_id"`
	Warehouses []WarehouseQuantityDTO `json:"warehouses"`
}

// AvailabilityResponse respuesta de GET /api/stock/:product_id/availability.
type AvailabilityResponse struct {
	ProductID   string          `json:"product_id"`
	WarehouseID string          `json:"warehouse_id,omitempty"`
	Requested   decimal.Decimal `json:"requested"`
	Available   bool            `json:"available"`
}

// ValueResponse valoración de existencias.
type ValueResponse struct {
	ProductID       string          `json:"product_id"`
	WarehouseID     string          `json:"warehouse_id,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	Value           decimal.Decimal `json:"value"`
	AverageUnitCost decimal.Decimal `json:"average_unit_cost"`
}

// InsufficientStockResponse cuerpo 409 de un traslado rechazado.
type InsufficientStockResponse struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	Available decimal.Decimal `json:"available"`
	Requested decimal.Decimal `json:"requested"`
}
