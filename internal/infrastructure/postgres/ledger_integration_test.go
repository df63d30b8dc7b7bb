package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kardex/internal/application/inventory"
	"github.com/jhoicas/kardex/internal/application/stock"
	"github.com/jhoicas/kardex/internal/domain"
	"github.com/jhoicas/kardex/internal/domain/entity"
	"github.com/jhoicas/kardex/internal/domain/repository"
	"github.com/jhoicas/kardex/internal/infrastructure/postgres"
	"github.com/jhoicas/kardex/pkg/config"
)

// Requiere DATABASE_URL apuntando a una base desechable; las filas usan ids únicos por ejecución.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL no definido")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: url, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = postgres.Migrate(ctx, pool)
	require.NoError(t, err)
	return pool
}

type pgFixture struct {
	pool      *pgxpool.Pool
	branch    string
	product   string
	warehouse [3]string
	orch      *inventory.Orchestrator
	query     *stock.QueryEngine
}

func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()
	pool := testPool(t)
	ctx := context.Background()

	f := &pgFixture{pool: pool, branch: uuid.NewString(), product: uuid.NewString()}
	_, err := pool.Exec(ctx,
		`INSERT INTO products (id, branch_id, sku, name) VALUES ($1, $2, $3, 'Tornillo')`,
		f.product, f.branch, "SKU-"+f.product[:8])
	require.NoError(t, err)
	for i := range f.warehouse {
		f.warehouse[i] = uuid.NewString()
		_, err := pool.Exec(ctx, `INSERT INTO warehouses (id, branch_id, name) VALUES ($1, $2, 'Bodega')`,
			f.warehouse[i], f.branch)
		require.NoError(t, err)
	}

	f.orch = inventory.NewOrchestrator(
		postgres.NewTxRunner(pool, 2*time.Second),
		postgres.NewProductRepository(pool),
		postgres.NewWarehouseRepository(pool),
		inventory.Options{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond},
	)
	f.query = stock.NewQueryEngine(postgres.NewStockQueryRepository(pool), postgres.NewMovementRepository(pool), nil, nil)
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Escenario: +100 a costo 2, traslado 30, traslado 80 rechazado con disponible 70.
func TestPostgres_EscenarioTraslado(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	w1, w2, w3 := f.warehouse[0], f.warehouse[1], f.warehouse[2]
	cost := dec("2")

	in, err := f.orch.Adjust(ctx, inventory.AdjustInput{
		BranchID: f.branch, ActorID: "u1", ProductID: f.product, WarehouseID: w1,
		Quantity: dec("100"), Kind: entity.MovementKindPurchase, UnitCost: &cost,
	})
	require.NoError(t, err)
	assert.NotZero(t, in.ID, "RETURNING id")
	assert.False(t, in.CreatedAt.IsZero(), "RETURNING created_at")
	assert.Equal(t, time.UTC, in.CreatedAt.Location())

	out, inLeg, err := f.orch.Transfer(ctx, inventory.TransferInput{
		BranchID: f.branch, ActorID: "u1", ProductID: f.product, Quantity: dec("30"),
		FromWarehouseID: w1, ToWarehouseID: w2,
	})
	require.NoError(t, err)
	assert.Equal(t, out.TransferID, inLeg.TransferID)
	assert.Less(t, out.ID, inLeg.ID)

	_, _, err = f.orch.Transfer(ctx, inventory.TransferInput{
		BranchID: f.branch, ActorID: "u1", ProductID: f.product, Quantity: dec("80"),
		FromWarehouseID: w1, ToWarehouseID: w2,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	var insufficient *domain.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "70", insufficient.Available.String())
	assert.Equal(t, "80", insufficient.Requested.String())

	qty := func(warehouseID string) string {
		q, err := f.query.CurrentQuantity(ctx, f.branch, f.product, warehouseID)
		require.NoError(t, err)
		return q.String()
	}
	assert.Equal(t, "70", qty(w1))
	assert.Equal(t, "30", qty(w2))
	assert.Equal(t, "100", qty(""), "bodega vacía suma toda la sucursal")
	assert.Equal(t, "0", qty(w3))

	byWarehouse, err := f.query.PerWarehouseBreakdown(ctx, f.branch, f.product)
	require.NoError(t, err)
	assert.Len(t, byWarehouse, 2)

	// El traslado mueve valor al costo promedio: el total de la sucursal no cambia.
	value, err := f.query.StockValue(ctx, f.branch, f.product, "")
	require.NoError(t, err)
	assert.Equal(t, "200", value.String())
	value, err = f.query.StockValue(ctx, f.branch, f.product, w3)
	require.NoError(t, err)
	assert.True(t, value.IsZero(), "COALESCE sin filas")

	view, err := f.query.Transfer(ctx, f.branch, out.TransferID)
	require.NoError(t, err)
	require.NotNil(t, view.Out)
	require.NotNil(t, view.In)
	assert.Equal(t, "-30", view.Out.Quantity.String())
	assert.Equal(t, w2, view.In.Reference.ToWarehouseID)

	neg, err := f.orch.Adjust(ctx, inventory.AdjustInput{
		BranchID: f.branch, ActorID: "u1", ProductID: f.product, WarehouseID: w3,
		Quantity: dec("-5"), Kind: entity.MovementKindCorrection, Reason: "conteo",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.DirectionOut, neg.Direction)
	assert.Equal(t, "-5", qty(w3))

	history, err := f.query.History(ctx, f.branch, f.product, entity.MovementFilter{})
	require.NoError(t, err)
	assert.Len(t, history, 4, "el traslado rechazado no deja filas")
}

func TestPostgres_VersionDelAgregado(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	runner := postgres.NewTxRunner(f.pool, time.Second)
	key := entity.StockKey{BranchID: f.branch, ProductID: f.product, WarehouseID: f.warehouse[0]}

	err := runner.Run(ctx, func(_ repository.MovementRepository, _ repository.StockQueryRepository, locks repository.StockLockRepository) error {
		return locks.Bump(ctx, key)
	})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation, "Bump sin fila de bloqueo")

	for i := 0; i < 2; i++ {
		err = runner.Run(ctx, func(_ repository.MovementRepository, _ repository.StockQueryRepository, locks repository.StockLockRepository) error {
			if err := locks.Lock(ctx, []entity.StockKey{key}); err != nil {
				return err
			}
			return locks.Bump(ctx, key)
		})
		require.NoError(t, err)
	}

	var version int64
	require.NoError(t, f.pool.QueryRow(ctx,
		`SELECT version FROM stock_locks WHERE product_id = $1 AND warehouse_id = $2`,
		key.ProductID, key.WarehouseID).Scan(&version))
	assert.Equal(t, int64(2), version)
}

func TestPostgres_LibroAppendOnly(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	m, err := f.orch.Adjust(ctx, inventory.AdjustInput{
		BranchID: f.branch, ProductID: f.product, WarehouseID: f.warehouse[0], Quantity: dec("1"),
	})
	require.NoError(t, err)

	_, err = f.pool.Exec(ctx, `UPDATE stock_movements SET quantity = 2 WHERE id = $1`, m.ID)
	assert.Error(t, err)
	_, err = f.pool.Exec(ctx, `DELETE FROM stock_movements WHERE id = $1`, m.ID)
	assert.Error(t, err)

	got, err := postgres.NewMovementRepository(f.pool).GetByID(ctx, f.branch, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "1", got.Quantity.String())
}
