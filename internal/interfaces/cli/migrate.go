package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// MigrateResult salida de migrate.
type MigrateResult struct {
	Applied []string `json:"applied"`
}

// NewMigrateCommand aplica las migraciones pendientes del esquema.
func NewMigrateCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:           "migrate",
		Short:         "Aplicar migraciones pendientes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: rootOpts.Verbose}
			b, err := openBackend(cmd, open)
			if err != nil {
				_ = f.Fail("E_OPEN", err.Error())
				return err
			}
			defer b.close()

			if b.Migrate == nil {
				return f.Success(MigrateResult{Applied: []string{}}, func(w io.Writer) {
					fmt.Fprintln(w, "el almacenamiento no requiere migraciones")
				})
			}
			applied, err := b.Migrate(contextOf(cmd))
			if err != nil {
				_ = f.Fail("E_MIGRATE", err.Error())
				return WrapExitError(ExitCommandError, "migrar", err)
			}
			if applied == nil {
				applied = []string{}
			}
			return f.Success(MigrateResult{Applied: applied}, func(w io.Writer) {
				if len(applied) == 0 {
					fmt.Fprintln(w, "esquema al día")
					return
				}
				for _, name := range applied {
					fmt.Fprintf(w, "aplicada %s\n", name)
				}
			})
		},
	}
}
