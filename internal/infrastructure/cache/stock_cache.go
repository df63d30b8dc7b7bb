// Package cache caché read-through de saldos sobre Redis.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/kardex/internal/application/stock"
	"github.com/jhoicas/kardex/internal/domain/entity"
	"github.com/jhoicas/kardex/pkg/config"
)

var _ stock.QuantityCache = (*StockCache)(nil)

const (
	keyPrefix = "kardex:qty"
	genPrefix = "kardex:gen"
)

// setIfGeneration escribe el saldo sólo si la generación no cambió desde la lectura.
// KEYS[1] generación, KEYS[2] saldo; ARGV: generación esperada, saldo, ttl en ms.
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[1])
if not gen then gen = '0' end
if gen ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// StockCache guarda saldos derivados con TTL corto. Una entrada perdida sólo cuesta una consulta al libro.
type StockCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient crea el cliente Redis a partir de la configuración.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// NewStockCache construye la caché; ttl <= 0 usa 30s.
func NewStockCache(rdb *redis.Client, ttl time.Duration) *StockCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StockCache{rdb: rdb, ttl: ttl}
}

// Key llave de un saldo: kardex:qty:{sucursal:producto}:{bodega|*}.
// El hash tag deja saldo y generación en el mismo slot de Redis Cluster.
func Key(k entity.StockKey) string {
	wh := k.WarehouseID
	if wh == "" {
		wh = "*"
	}
	return fmt.Sprintf("%s:{%s:%s}:%s", keyPrefix, k.BranchID, k.ProductID, wh)
}

// GenerationKey llave del contador de generación de (sucursal, producto).
func GenerationKey(branchID, productID string) string {
	return fmt.Sprintf("%s:{%s:%s}", genPrefix, branchID, productID)
}

func (c *StockCache) GetQuantity(ctx context.Context, key entity.StockKey) (decimal.Decimal, bool, int64, error) {
	vals, err := c.rdb.MGet(ctx, Key(key), GenerationKey(key.BranchID, key.ProductID)).Result()
	if err != nil {
		return decimal.Zero, false, 0, fmt.Errorf("redis mget: %w", err)
	}
	var gen int64
	if raw, ok := vals[1].(string); ok {
		if gen, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return decimal.Zero, false, 0, fmt.Errorf("generación inválida %q: %w", raw, err)
		}
	}
	raw, ok := vals[0].(string)
	if !ok {
		return decimal.Zero, false, gen, nil
	}
	qty, err := decimal.NewFromString(raw)
	if err != nil {
		// valor corrupto: se trata como ausente
		return decimal.Zero, false, gen, nil
	}
	return qty, true, gen, nil
}

func (c *StockCache) SetQuantity(ctx context.Context, key entity.StockKey, qty decimal.Decimal, gen int64) error {
	keys := []string{GenerationKey(key.BranchID, key.ProductID), Key(key)}
	err := setIfGeneration.Run(ctx, c.rdb, keys, strconv.FormatInt(gen, 10), qty.String(), c.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate incrementa la generación y borra el saldo de cada bodega indicada y el total de la
// sucursal, en una sola transacción MULTI.
func (c *StockCache) Invalidate(ctx context.Context, branchID, productID string, warehouseIDs ...string) error {
	keys := []string{Key(entity.StockKey{BranchID: branchID, ProductID: productID})}
	for _, w := range warehouseIDs {
		if w == "" {
			continue
		}
		keys = append(keys, Key(entity.StockKey{BranchID: branchID, ProductID: productID, WarehouseID: w}))
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenerationKey(branchID, productID))
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate: %w", err)
	}
	return nil
}
