// Package optimize provides the optimize command.
package optimize

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/bomsync/internal/appcontext"
	"github.com/agentstation/bomsync/internal/cmd/output"
)

// NewCommand creates the optimize command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "optimize",
		GroupID: "core",
		Short:   "Select the cheapest supplier for every part line",
		Long: `Optimize prices every part line against the supplier quotes in the
workspace and selects the supplier and order quantity with the lowest total
cost. Buying a larger quantity is preferred when a price break makes it
cheaper overall. Nothing is written.`,
		Example: `  bomsync optimize
  bomsync optimize -o wide
  bomsync optimize -w board.yaml -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := app.Workspace()
			if err != nil {
				return err
			}
			bs, _, err := app.Bomsync(ws)
			if err != nil {
				return err
			}

			result, err := bs.Optimize(ws.PartLines())
			if err != nil {
				return err
			}

			app.Logger().Debug().
				Int("lines", len(result.Lines)).
				Int("unsourced", len(result.Unsourced)).
				Str("total", result.Total.StringFixed(2)).
				Msg("Optimized part lines")

			w := cmd.OutOrStdout()
			format := output.DetectFormat(app.OutputFormat())
			if err := output.Render(w, format, result, func(wide bool) output.Data {
				return output.PartLinesData(result.Lines, wide)
			}); err != nil {
				return err
			}
			if output.IsTable(format) {
				fmt.Fprintf(w, "\nTotal: %s\n", result.Total.StringFixed(2))
				if len(result.Unsourced) > 0 {
					fmt.Fprintf(w, "Unsourced: %d\n", len(result.Unsourced))
				}
			}
			return nil
		},
	}
}
