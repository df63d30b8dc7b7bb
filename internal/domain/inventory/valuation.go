package inventory

import "github.com/shopspring/decimal"

// CostScale decimales del costo unitario persistido (NUMERIC(20,6)).
const CostScale = 6

// AverageUnitCost costo promedio ponderado derivado del libro:
// CostoPromedio = SUM(cantidad * costo) / SUM(cantidad).
// Con saldo cero o negativo no hay costo promedio significativo y se devuelve cero.
func AverageUnitCost(value, quantity decimal.Decimal) decimal.Decimal {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return value.DivRound(quantity, CostScale)
}
