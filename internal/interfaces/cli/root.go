// Package cli comandos de operación del kardex (kardexctl).
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/jhoicas/kardex/internal/domain/repository"
)

// RootOptions flags globales.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats formatos de salida permitidos.
var ValidFormats = []string{"text", "json"}

// Backend almacenamiento sobre el que operan los comandos.
type Backend struct {
	Ledger  repository.MovementRepository
	Queries repository.StockQueryRepository
	// Migrate aplica el esquema; nil si el backend no lo necesita (memoria).
	Migrate func(ctx context.Context) ([]string, error)
	Close   func()
}

// Opener abre el backend configurado. Se invoca por comando, no al construir el árbol.
type Opener func(ctx context.Context) (*Backend, error)

// TokenIssuer firma un token de acceso para la API.
type TokenIssuer func(userID, branchID, role string) (string, error)

// NewRootCommand crea el comando raíz de kardexctl. issue puede ser nil si no hay secreto JWT.
func NewRootCommand(open Opener, issue TokenIssuer) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "kardexctl",
		Short: "kardexctl - operación del libro de existencias",
		Long:  "Migraciones, verificación de invariantes y consulta de saldos del kardex.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("formato inválido %q: debe ser uno de %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "salida detallada")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "formato de salida (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts, open))
	cmd.AddCommand(NewVerifyCommand(opts, open))
	cmd.AddCommand(NewBalanceCommand(opts, open))
	cmd.AddCommand(NewTokenCommand(opts, issue))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func openBackend(cmd *cobra.Command, open Opener) (*Backend, error) {
	b, err := open(contextOf(cmd))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "abrir almacenamiento", err)
	}
	return b, nil
}

func (b *Backend) close() {
	if b.Close != nil {
		b.Close()
	}
}
