package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// TokenResult salida de token.
type TokenResult struct {
	Token string `json:"token"`
}

// NewTokenCommand firma un token para operar la API en desarrollo o soporte.
// El alta de usuarios vive fuera de este servicio.
func NewTokenCommand(rootOpts *RootOptions, issue TokenIssuer) *cobra.Command {
	var userID, branchID, role string

	cmd := &cobra.Command{
		Use:           "token",
		Short:         "Firmar un token de acceso (user_id, branch_id, role)",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: rootOpts.Verbose}
			if issue == nil {
				err := errors.New("JWT_SECRET no configurado")
				_ = f.Fail("E_CONFIG", err.Error())
				return WrapExitError(ExitCommandError, "firmar token", err)
			}
			tok, err := issue(userID, branchID, role)
			if err != nil {
				_ = f.Fail("E_TOKEN", err.Error())
				return WrapExitError(ExitCommandError, "firmar token", err)
			}
			return f.Success(TokenResult{Token: tok}, func(w io.Writer) {
				fmt.Fprintln(w, tok)
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "actor (obligatorio)")
	cmd.Flags().StringVar(&branchID, "branch", "", "sucursal (obligatorio)")
	cmd.Flags().StringVar(&role, "role", "bodeguero", "admin | bodeguero | vendedor")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("branch")
	return cmd
}
