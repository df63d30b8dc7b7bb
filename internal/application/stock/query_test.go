package stock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kardex/internal/application/stock"
	"github.com/jhoicas/kardex/internal/domain"
	"github.com/jhoicas/kardex/internal/domain/entity"
	"github.com/jhoicas/kardex/internal/domain/repository"
	"github.com/jhoicas/kardex/internal/infrastructure/memory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seeded(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.NewStore(time.Second)
	s.AddProduct(entity.Product{ID: "p1", BranchID: "b1", Type: entity.ProductTypeGoods, IsStockTracked: true})
	s.AddWarehouse(entity.Warehouse{ID: "w1", BranchID: "b1"})
	s.AddWarehouse(entity.Warehouse{ID: "w2", BranchID: "b1"})

	ctx := context.Background()
	for _, m := range []struct{ wh, qty, cost string }{
		{"w1", "10", "2"},
		{"w1", "-4", "2"},
		{"w2", "6", ""},
	} {
		q := d(m.qty)
		mov := &entity.Movement{
			BranchID: "b1", ProductID: "p1", WarehouseID: m.wh,
			Quantity: q, Direction: entity.DirectionOf(q), Kind: entity.MovementKindAdjustment,
		}
		if m.cost != "" {
			mov.UnitCost = decimal.NewNullDecimal(d(m.cost))
		}
		_, err := s.Ledger().Append(ctx, mov)
		require.NoError(t, err)
	}
	return s
}

func TestCurrentQuantity(t *testing.T) {
	s := seeded(t)
	q := stock.NewQueryEngine(s.Queries(), s.Ledger(), nil, nil)
	ctx := context.Background()

	w1, err := q.CurrentQuantity(ctx, "b1", "p1", "w1")
	require.NoError(t, err)
	assert.Equal(t, "6", w1.String())

	total, err := q.CurrentQuantity(ctx, "b1", "p1", "")
	require.NoError(t, err)
	assert.Equal(t, "12", total.String())

	none, err := q.CurrentQuantity(ctx, "b1", "sin-movimientos", "")
	require.NoError(t, err)
	assert.True(t, none.IsZero())

	_, err = q.CurrentQuantity(ctx, "", "p1", "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCurrentQuantity_LecturasRepetidasCoinciden(t *testing.T) {
	s := seeded(t)
	q := stock.NewQueryEngine(s.Queries(), s.Ledger(), nil, nil)
	ctx := context.Background()

	a, err := q.CurrentQuantity(ctx, "b1", "p1", "w2")
	require.NoError(t, err)
	b, err := q.CurrentQuantity(ctx, "b1", "p1", "w2")
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestPerWarehouseBreakdown(t *testing.T) {
	s := seeded(t)
	q := stock.NewQueryEngine(s.Queries(), s.Ledger(), nil, nil)

	got, err := q.PerWarehouseBreakdown(context.Background(), "b1", "p1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "6", got["w1"].String())
	assert.Equal(t, "6", got["w2"].String())

	empty, err := q.PerWarehouseBreakdown(context.Background(), "b1", "otro")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestIsAvailable(t *testing.T) {
	s := seeded(t)
	q := stock.NewQueryEngine(s.Queries(), s.Ledger(), nil, nil)
	ctx := context.Background()

	cases := []struct {
		requested string
		want      bool
	}{
		{"0", true},
		{"6", true},
		{"6.0001", false},
		{"-1", false},
	}
	for _, tc := range cases {
		ok, err := q.IsAvailable(ctx, "b1", "p1", "w1", d(tc.requested))
		require.NoError(t, err)
		assert.Equal(t, tc.want, ok, "solicitado %s", tc.requested)
	}
}

func TestStockValueYValuation(t *testing.T) {
	s := seeded(t)
	q := stock.NewQueryEngine(s.Queries(), s.Ledger(), nil, nil)
	ctx := context.Background()

	// w2 no tiene costo: aporta cero al valor.
	value, err := q.StockValue(ctx, "b1", "p1", "")
	require.NoError(t, err)
	assert.Equal(t, "12", value.String())

	v, err := q.Valuation(ctx, "b1", "p1", "w1")
	require.NoError(t, err)
	assert.Equal(t, "6", v.Quantity.String())
	assert.Equal(t, "12", v.Value.String())
	assert.Equal(t, "2", v.AverageUnitCost.String())
}

func TestHistory_LimiteYOrden(t *testing.T) {
	s := seeded(t)
	q := stock.NewQueryEngine(s.Queries(), s.Ledger(), nil, nil)
	ctx := context.Background()

	all, err := q.History(ctx, "b1", "p1", entity.MovementFilter{Limit: 500})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Greater(t, all[0].ID, all[1].ID, "más recientes primero")

	w1, err := q.History(ctx, "b1", "p1", entity.MovementFilter{WarehouseID: "w1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, w1, 1)
	assert.Equal(t, "-4", w1[0].Quantity.String())
}

func TestTransfer_SinPatasEsNotFound(t *testing.T) {
	s := seeded(t)
	q := stock.NewQueryEngine(s.Queries(), s.Ledger(), nil, nil)

	_, err := q.Transfer(context.Background(), "b1", "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type mapCache struct {
	data    map[entity.StockKey]decimal.Decimal
	gen     int64
	getErr  error
	sets    int
	lastSet entity.StockKey
}

func (c *mapCache) GetQuantity(_ context.Context, key entity.StockKey) (decimal.Decimal, bool, int64, error) {
	if c.getErr != nil {
		return decimal.Zero, false, 0, c.getErr
	}
	v, ok := c.data[key]
	return v, ok, c.gen, nil
}

func (c *mapCache) SetQuantity(_ context.Context, key entity.StockKey, qty decimal.Decimal, gen int64) error {
	c.sets++
	c.lastSet = key
	if gen == c.gen {
		c.data[key] = qty
	}
	return nil
}

func (c *mapCache) Invalidate(context.Context, string, string, ...string) error {
	c.gen++
	clear(c.data)
	return nil
}

func TestCurrentQuantity_ReadThrough(t *testing.T) {
	s := seeded(t)
	cache := &mapCache{data: map[entity.StockKey]decimal.Decimal{}}
	q := stock.NewQueryEngine(s.Queries(), s.Ledger(), cache, nil)
	ctx := context.Background()
	key := entity.StockKey{BranchID: "b1", ProductID: "p1", WarehouseID: "w1"}

	first, err := q.CurrentQuantity(ctx, "b1", "p1", "w1")
	require.NoError(t, err)
	assert.Equal(t, "6", first.String())
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, key, cache.lastSet)

	// un acierto no vuelve a escribir
	cache.data[key] = d("99")
	hit, err := q.CurrentQuantity(ctx, "b1", "p1", "w1")
	require.NoError(t, err)
	assert.Equal(t, "99", hit.String())
	assert.Equal(t, 1, cache.sets)
}

func TestCurrentQuantity_CacheCaidaUsaLibro(t *testing.T) {
	s := seeded(t)
	cache := &mapCache{data: map[entity.StockKey]decimal.Decimal{}, getErr: errors.New("redis caído")}
	q := stock.NewQueryEngine(s.Queries(), s.Ledger(), cache, nil)

	got, err := q.CurrentQuantity(context.Background(), "b1", "p1", "")
	require.NoError(t, err)
	assert.Equal(t, "12", got.String())
	assert.Zero(t, cache.sets, "sin generación conocida no se escribe")
}

func TestCurrentQuantity_GeneracionVencidaNoSeCachea(t *testing.T) {
	s := seeded(t)
	cache := &mapCache{data: map[entity.StockKey]decimal.Decimal{}}
	ctx := context.Background()
	key := entity.StockKey{BranchID: "b1", ProductID: "p1", WarehouseID: "w1"}

	// invalida entre la lectura de la caché y la escritura del saldo
	racing := &invalidatingQueries{StockQueryRepository: s.Queries(), cache: cache}
	q := stock.NewQueryEngine(racing, s.Ledger(), cache, nil)

	got, err := q.CurrentQuantity(ctx, "b1", "p1", "w1")
	require.NoError(t, err)
	assert.Equal(t, "6", got.String())
	assert.Equal(t, 1, cache.sets)
	_, cached := cache.data[key]
	assert.False(t, cached)
}

type invalidatingQueries struct {
	repository.StockQueryRepository
	cache *mapCache
}

func (r *invalidatingQueries) SumQuantity(ctx context.Context, branchID, productID, warehouseID string) (decimal.Decimal, error) {
	qty, err := r.StockQueryRepository.SumQuantity(ctx, branchID, productID, warehouseID)
	_ = r.cache.Invalidate(ctx, branchID, productID, warehouseID)
	return qty, err
}
