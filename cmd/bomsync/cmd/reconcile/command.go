// Package reconcile provides the reconcile command.
package reconcile

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/bomsync"
	"github.com/agentstation/bomsync/internal/appcontext"
	"github.com/agentstation/bomsync/internal/cmd/cmdutil"
	"github.com/agentstation/bomsync/internal/cmd/output"
)

// NewCommand creates the reconcile command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var (
		policyFlags *cmdutil.PolicyFlags
		targetFlags *cmdutil.TargetFlags
	)

	cmd := &cobra.Command{
		Use:     "reconcile",
		GroupID: "core",
		Short:   "Compare part lines with the target BOM",
		Long: `Reconcile compares the workspace part lines with the items already in
the target BOM and reports which lines would be uploaded as new, which have a
quantity conflict and how each conflict is resolved. Nothing is written.

Conflicts are resolved with --on-conflict:
  skip       keep the existing item and upload nothing
  use_delta  upload only the missing quantity
  use_full   upload the full requested quantity`,
		Example: `  bomsync reconcile
  bomsync reconcile --on-conflict use_delta
  bomsync reconcile --bom-name "Main board" -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policies, err := policyFlags.Policies()
			if err != nil {
				return err
			}
			ws, err := app.Workspace()
			if err != nil {
				return err
			}
			bs, _, err := app.Bomsync(ws, bomsync.WithPolicies(policies))
			if err != nil {
				return err
			}

			outcome, err := bs.Reconcile(cmd.Context(), ws.PartLines(), targetFlags.Apply(ws.Target))
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			format := output.DetectFormat(app.OutputFormat())
			if err := output.Render(w, format, outcome, func(wide bool) output.Data {
				return output.RecordsData(outcome.Records, wide)
			}); err != nil {
				return err
			}
			if output.IsTable(format) {
				fmt.Fprintf(w, "\n%s\n", outcome.Summary())
			}
			return nil
		},
	}

	policyFlags = cmdutil.AddPolicyFlags(cmd)
	targetFlags = cmdutil.AddTargetFlags(cmd)

	return cmd
}
