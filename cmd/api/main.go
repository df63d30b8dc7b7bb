package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/kardex/internal/application/inventory"
	"github.com/jhoicas/kardex/internal/application/stock"
	"github.com/jhoicas/kardex/internal/domain/repository"
	"github.com/jhoicas/kardex/internal/infrastructure/cache"
	"github.com/jhoicas/kardex/internal/infrastructure/memory"
	"github.com/jhoicas/kardex/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/kardex/internal/interfaces/http"
	"github.com/jhoicas/kardex/pkg/config"
	"github.com/jhoicas/kardex/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.App.StoreDriver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var (
		txRunner      inventory.TxRunner
		ledger        repository.MovementRepository
		queries       repository.StockQueryRepository
		productRepo   repository.ProductRepository
		warehouseRepo repository.WarehouseRepository
	)
	switch cfg.App.StoreDriver {
	case "memory":
		store := memory.NewStore(cfg.Ledger.LockTimeout)
		if err := store.LoadSeedFile(cfg.App.SeedFile); err != nil {
			log.Fatal().Err(err).Str("file", cfg.App.SeedFile).Msg("cargar maestro en memoria")
		}
		txRunner, ledger, queries = store, store.Ledger(), store.Queries()
		productRepo, warehouseRepo = store.Products(), store.Warehouses()
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()

		if cfg.App.AutoMigrate {
			applied, err := postgres.Migrate(ctx, pool)
			if err != nil {
				log.Fatal().Err(err).Msg("migraciones")
			}
			log.Info().Strs("applied", applied).Msg("migraciones aplicadas")
		}
		txRunner = postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout)
		ledger = postgres.NewMovementRepository(pool)
		queries = postgres.NewStockQueryRepository(pool)
		productRepo = postgres.NewProductRepository(pool)
		warehouseRepo = postgres.NewWarehouseRepository(pool)
	}

	// Caché de saldos opcional; sin REDIS_HOST todas las lecturas van al libro.
	var quantityCache stock.QuantityCache
	if cfg.Redis.Enabled() {
		rdb := cache.NewClient(cfg.Redis)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr()).Msg("redis no disponible, se continúa sin caché")
		}
		quantityCache = cache.NewStockCache(rdb, cfg.Ledger.CacheTTL)
	}

	queryEngine := stock.NewQueryEngine(queries, ledger, quantityCache, log)
	orchestrator := inventory.NewOrchestrator(txRunner, productRepo, warehouseRepo, inventory.Options{
		MaxAttempts: cfg.Ledger.RetryMaxAttempts,
		BaseDelay:   cfg.Ledger.RetryBaseDelay,
		Cache:       quantityCache,
		Logger:      log,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Kardex API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Query:        queryEngine,
		Orchestrator: orchestrator,
		JWTSecret:    cfg.JWT.Secret,
		Logger:       log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
