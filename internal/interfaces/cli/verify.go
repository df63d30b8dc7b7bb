package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/jhoicas/kardex/internal/application/inventory"
)

// NewVerifyCommand recorre el libro completo y reporta violaciones de invariantes.
// Sale con código 1 si encuentra alguna.
func NewVerifyCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verificar invariantes del libro",
		Long: `Recorre stock_movements en orden de id y revisa:
  - invariantes de fila (cantidad distinta de cero, dirección coherente con el signo, escala)
  - created_at sin retrocesos dentro de cada par (producto, bodega)
  - cada traslado con exactamente dos patas opuestas del mismo producto`,
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

			report, err := inventory.VerifyLedger(contextOf(cmd), b.Ledger)
			if err != nil {
				_ = f.Fail("E_SCAN", err.Error())
				return WrapExitError(ExitCommandError, "recorrer libro", err)
			}
			f.VerboseLog("%d movimientos revisados", report.Scanned)

			if err := f.Success(report, func(w io.Writer) {
				fmt.Fprintf(w, "%d movimientos, %d violaciones\n", report.Scanned, len(report.Violations))
				for _, v := range report.Violations {
					target := v.TransferID
					if v.MovementID != 0 {
						target = fmt.Sprintf("#%d", v.MovementID)
					}
					fmt.Fprintf(w, "  %-18s %-12s %s\n", v.Rule, target, v.Detail)
				}
			}); err != nil {
				return err
			}
			if !report.OK() {
				return NewExitError(ExitFailure, fmt.Sprintf("%d violaciones", len(report.Violations)))
			}
			return nil
		},
	}
}
