package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/kardex/internal/infrastructure/memory"
	"github.com/jhoicas/kardex/internal/infrastructure/postgres"
	"github.com/jhoicas/kardex/internal/interfaces/cli"
	"github.com/jhoicas/kardex/pkg/config"
	"github.com/jhoicas/kardex/pkg/jwt"
	"github.com/jhoicas/kardex/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cargar configuración:", err)
		os.Exit(cli.ExitCommandError)
	}
	log := logger.NewWithWriter(os.Stderr, cfg.App.LogLevel).Component("kardexctl")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var issue cli.TokenIssuer
	if cfg.JWT.Secret != "" {
		issue = func(userID, branchID, role string) (string, error) {
			return jwt.Generate(cfg.JWT.Secret, userID, branchID, role, cfg.JWT.Issuer, cfg.JWT.Expiration)
		}
	}

	root := cli.NewRootCommand(opener(cfg, log), issue)
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}

func opener(cfg *config.Config, log *logger.Logger) cli.Opener {
	return func(ctx context.Context) (*cli.Backend, error) {
		if cfg.App.StoreDriver == "memory" {
			store := memory.NewStore(cfg.Ledger.LockTimeout)
			if err := store.LoadSeedFile(cfg.App.SeedFile); err != nil {
				return nil, err
			}
			log.Debug().Msg("libro en memoria")
			return &cli.Backend{Ledger: store.Ledger(), Queries: store.Queries()}, nil
		}

		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		log.Debug().Int("max_conns", cfg.DB.MaxConns).Msg("conectado a PostgreSQL")
		return &cli.Backend{
			Ledger:  postgres.NewMovementRepository(pool),
			Queries: postgres.NewStockQueryRepository(pool),
			Migrate: func(ctx context.Context) ([]string, error) { return postgres.Migrate(ctx, pool) },
			Close:   pool.Close,
		}, nil
	}
}
