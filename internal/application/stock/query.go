package stock

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/kardex/internal/domain"
	"github.com/jhoicas/kardex/internal/domain/entity"
	"github.com/jhoicas/kardex/internal/domain/inventory"
	"github.com/jhoicas/kardex/internal/domain/repository"
	"github.com/jhoicas/kardex/pkg/logger"
)

// QuantityCache caché read-through de saldos. Nunca es fuente de verdad: cualquier valor
// debe poder recalcularse desde el libro. WarehouseID vacío en la llave = total de la sucursal.
//
// Cada (sucursal, producto) tiene una generación que Invalidate incrementa. Un lector toma la
// generación antes de sumar el libro y sólo puede escribir si sigue vigente, así un saldo leído
// antes de un commit no pisa la invalidación de ese commit.
type QuantityCache interface {
	// GetQuantity devuelve el saldo cacheado (ok) y la generación vigente.
	GetQuantity(ctx context.Context, key entity.StockKey) (qty decimal.Decimal, ok bool, gen int64, err error)
	// SetQuantity guarda qty sólo si la generación sigue siendo gen; si no, no hace nada.
	SetQuantity(ctx context.Context, key entity.StockKey, qty decimal.Decimal, gen int64) error
	// Invalidate incrementa la generación y descarta el saldo de cada bodega indicada y el total.
	Invalidate(ctx context.Context, branchID, productID string, warehouseIDs ...string) error
}

// QueryEngine responde "cuánto hay" agregando el libro; no guarda estado propio.
type QueryEngine struct {
	repo   repository.StockQueryRepository
	ledger repository.MovementRepository
	cache  QuantityCache
	log    *logger.Logger
}

// NewQueryEngine construye el motor de consultas. cache puede ser nil.
func NewQueryEngine(
	repo repository.StockQueryRepository,
	ledger repository.MovementRepository,
	cache QuantityCache,
	log *logger.Logger,
) *QueryEngine {
	if log == nil {
		log = logger.Nop()
	}
	return &QueryEngine{repo: repo, ledger: ledger, cache: cache, log: log.Component("stock_query")}
}

// CurrentQuantity suma las cantidades con signo del producto; warehouseID vacío suma todas las
// bodegas de la sucursal.
func (q *QueryEngine) CurrentQuantity(ctx context.Context, branchID, productID, warehouseID string) (decimal.Decimal, error) {
	if branchID == "" || productID == "" {
		return decimal.Zero, domain.ErrInvalidArgument
	}
	key := entity.StockKey{BranchID: branchID, ProductID: productID, WarehouseID: warehouseID}
	var (
		gen      int64
		cachable bool
	)
	if q.cache != nil {
		qty, ok, g, err := q.cache.GetQuantity(ctx, key)
		switch {
		case err != nil:
			q.log.Warn().Err(err).Str("product_id", productID).Msg("caché de saldos no disponible")
		case ok:
			return qty, nil
		default:
			gen, cachable = g, true
		}
	}
	qty, err := q.repo.SumQuantity(ctx, branchID, productID, warehouseID)
	if err != nil {
		return decimal.Zero, err
	}
	if cachable {
		if err := q.cache.SetQuantity(ctx, key, qty, gen); err != nil {
			q.log.Warn().Err(err).Str("product_id", productID).Msg("no se pudo cachear saldo")
		}
	}
	return qty, nil
}

// PerWarehouseBreakdown saldo por bodega en una sola pasada agrupada.
func (q *QueryEngine) PerWarehouseBreakdown(ctx context.Context, branchID, productID string) (map[string]decimal.Decimal, error) {
	if branchID == "" || productID == "" {
		return nil, domain.ErrInvalidArgument
	}
	rows, err := q.repo.SumByWarehouse(ctx, branchID, productID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		out[r.WarehouseID] = r.Quantity
	}
	return out, nil
}

// IsAvailable requested >= 0 y saldo >= requested. Una solicitud negativa nunca está disponible.
func (q *QueryEngine) IsAvailable(ctx context.Context, branchID, productID, warehouseID string, requested decimal.Decimal) (bool, error) {
	if requested.IsNegative() {
		return false, nil
	}
	current, err := q.CurrentQuantity(ctx, branchID, productID, warehouseID)
	if err != nil {
		return false, err
	}
	return current.GreaterThanOrEqual(requested), nil
}

// StockValue SUM(cantidad * costo unitario) con costo ausente como cero.
func (q *QueryEngine) StockValue(ctx context.Context, branchID, productID, warehouseID string) (decimal.Decimal, error) {
	if branchID == "" || productID == "" {
		return decimal.Zero, domain.ErrInvalidArgument
	}
	return q.repo.SumValue(ctx, branchID, productID, warehouseID)
}

// Valuation resumen de valoración de un producto.
type Valuation struct {
	Quantity        decimal.Decimal
	Value           decimal.Decimal
	AverageUnitCost decimal.Decimal
}

// Valuation cantidad, valor y costo promedio, leídos directamente del libro (sin caché).
func (q *QueryEngine) Valuation(ctx context.Context, branchID, productID, warehouseID string) (*Valuation, error) {
	if branchID == "" || productID == "" {
		return nil, domain.ErrInvalidArgument
	}
	qty, err := q.repo.SumQuantity(ctx, branchID, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	value, err := q.repo.SumValue(ctx, branchID, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	return &Valuation{Quantity: qty, Value: value, AverageUnitCost: inventory.AverageUnitCost(value, qty)}, nil
}

// History historial de movimientos del producto, más recientes primero.
func (q *QueryEngine) History(ctx context.Context, branchID, productID string, filter entity.MovementFilter) ([]*entity.Movement, error) {
	if branchID == "" || productID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return q.ledger.ListByProduct(ctx, branchID, productID, filter)
}

// TransferView reensambla las patas de un traslado. Si el traslado cruza sucursales, la pata
// de la otra sucursal no es visible y queda en nil.
type TransferView struct {
	TransferID string
	Out        *entity.Movement
	In         *entity.Movement
}

// Transfer reensambla un traslado a partir de su TransferID.
func (q *QueryEngine) Transfer(ctx context.Context, branchID, transferID string) (*TransferView, error) {
	if branchID == "" || transferID == "" {
		return nil, domain.ErrInvalidArgument
	}
	legs, err := q.ledger.ListByTransfer(ctx, branchID, transferID)
	if err != nil {
		return nil, err
	}
	if len(legs) == 0 {
		return nil, domain.ErrNotFound
	}
	sort.Slice(legs, func(i, j int) bool { return legs[i].ID < legs[j].ID })
	view := &TransferView{TransferID: transferID}
	for _, m := range legs {
		switch m.Direction {
		case entity.DirectionOut:
			view.Out = m
		case entity.DirectionIn:
			view.In = m
		}
	}
	return view, nil
}
