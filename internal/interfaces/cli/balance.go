package cli

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/jhoicas/kardex/internal/application/stock"
)

// BalanceResult salida de balance.
type BalanceResult struct {
	BranchID        string                     `json:"branch_id"`
	ProductID       string                     `json:"product_id"`
	WarehouseID     string                     `json:"warehouse_id,omitempty"`
	Quantity        decimal.Decimal            `json:"quantity"`
	Value           decimal.Decimal            `json:"value"`
	AverageUnitCost decimal.Decimal            `json:"average_unit_cost"`
	Warehouses      map[string]decimal.Decimal `json:"warehouses,omitempty"`
}

// NewBalanceCommand saldo y valoración de un producto, leídos directamente del libro.
func NewBalanceCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	var branchID, productID, warehouseID string

	cmd := &cobra.Command{
		Use:           "balance",
		Short:         "Saldo y valoración de un producto",
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

			ctx := contextOf(cmd)
			q := stock.NewQueryEngine(b.Queries, b.Ledger, nil, nil)
			v, err := q.Valuation(ctx, branchID, productID, warehouseID)
			if err != nil {
				_ = f.Fail("E_QUERY", err.Error())
				return WrapExitError(ExitCommandError, "consultar saldo", err)
			}
			res := BalanceResult{
				BranchID: branchID, ProductID: productID, WarehouseID: warehouseID,
				Quantity: v.Quantity, Value: v.Value, AverageUnitCost: v.AverageUnitCost,
			}
			if warehouseID == "" {
				if res.Warehouses, err = q.PerWarehouseBreakdown(ctx, branchID, productID); err != nil {
					_ = f.Fail("E_QUERY", err.Error())
					return WrapExitError(ExitCommandError, "consultar saldo por bodega", err)
				}
			}
			return f.Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "producto %s  cantidad %s  valor %s  costo promedio %s\n",
					productID, res.Quantity, res.Value, res.AverageUnitCost)
				for _, wh := range sortedKeys(res.Warehouses) {
					fmt.Fprintf(w, "  %-20s %s\n", wh, res.Warehouses[wh])
				}
			})
		},
	}

	cmd.Flags().StringVar(&branchID, "branch", "", "sucursal (obligatorio)")
	cmd.Flags().StringVar(&productID, "product", "", "producto (obligatorio)")
	cmd.Flags().StringVar(&warehouseID, "warehouse", "", "bodega; vacío = todas")
	_ = cmd.MarkFlagRequired("branch")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}
