package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kardex/internal/domain/entity"
	"github.com/jhoicas/kardex/internal/infrastructure/cache"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "kardex:qty:{b1:p1}:w1", cache.Key(entity.StockKey{BranchID: "b1", ProductID: "p1", WarehouseID: "w1"}))
	assert.Equal(t, "kardex:qty:{b1:p1}:*", cache.Key(entity.StockKey{BranchID: "b1", ProductID: "p1"}))
	assert.Equal(t, "kardex:gen:{b1:p1}", cache.GenerationKey("b1", "p1"))
}

// Sin servidor la caché devuelve error en lugar de un saldo: el llamador cae al libro.
func TestStockCache_SinServidor(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	c := cache.NewStockCache(rdb, time.Second)
	ctx := context.Background()
	key := entity.StockKey{BranchID: "b1", ProductID: "p1", WarehouseID: "w1"}

	_, ok, _, err := c.GetQuantity(ctx, key)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, c.SetQuantity(ctx, key, decimal.NewFromInt(3), 0))
	assert.Error(t, c.Invalidate(ctx, "b1", "p1", "w1"))
}

// redisClient usa KARDEX_TEST_REDIS_ADDR; sin ella la prueba se omite.
func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("KARDEX_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("KARDEX_TEST_REDIS_ADDR no definido")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return rdb
}

func TestStockCache_EscrituraConGeneracionVencidaSeDescarta(t *testing.T) {
	rdb := redisClient(t)
	c := cache.NewStockCache(rdb, time.Minute)
	ctx := context.Background()
	branch := "b-" + time.Now().Format("150405.000000")
	key := entity.StockKey{BranchID: branch, ProductID: "p1", WarehouseID: "w1"}
	t.Cleanup(func() { rdb.Del(ctx, cache.Key(key), cache.GenerationKey(branch, "p1")) })

	// el lector toma la generación antes de sumar el libro
	_, ok, gen, err := c.GetQuantity(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	// un commit concurrente invalida
	require.NoError(t, c.Invalidate(ctx, branch, "p1", "w1"))

	// el saldo viejo llega tarde y no se guarda
	require.NoError(t, c.SetQuantity(ctx, key, decimal.NewFromInt(10), gen))
	_, ok, newGen, err := c.GetQuantity(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "saldo anterior al commit no debe quedar en caché")
	assert.Equal(t, gen+1, newGen)

	// con la generación vigente sí se guarda
	require.NoError(t, c.SetQuantity(ctx, key, decimal.NewFromInt(3), newGen))
	qty, ok, _, err := c.GetQuantity(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "3", qty.String())
}
