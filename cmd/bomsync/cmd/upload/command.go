// Package upload provides the upload command.
package upload

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/bomsync/internal/appcontext"
	"github.com/agentstation/bomsync/internal/cmd/cmdutil"
)

// Flags holds the upload command flags.
type Flags struct {
	FetchQuotes             bool
	SelectSuppliers         bool
	Catalog                 string
	CreateBom               bool
	Report                  string
	UpdateCatalogProperties bool
	NoSave                  bool
	MetricsFile             string

	Policies *cmdutil.PolicyFlags
	Target   *cmdutil.TargetFlags
}

// NewCommand creates the upload command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var flags *Flags

	cmd := &cobra.Command{
		Use:     "upload",
		GroupID: "core",
		Short:   "Upload part lines to the target BOM",
		Long: `Upload runs the full pipeline on the workspace part lines:

1. Quote - ask every supplier for price breaks (--fetch-quotes)
2. Select - pick the cheapest supplier and order quantity per line
3. Reconcile - compare with the items already in the target BOM
4. Catalogs - add unmatched parts to a catalog and refresh matched ones
5. Upload - add the remaining lines in paced, retried batches

A supplier that rate limits is either dropped for the rest of the run
(--on-rate-limit continue) or stops the run (abort). Parts still pending
when a run stops are reported as pending.

Without a catalog service the workspace file is updated with the new BOM
and catalog contents unless --no-save is given.`,
		Example: `  bomsync upload --fetch-quotes
  bomsync upload --select --catalog passives --create-bom
  bomsync upload --on-conflict use_delta --report upload.md
  bomsync upload --metrics-file /var/lib/node_exporter/bomsync.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Execute(cmd.Context(), app, flags, cmd.OutOrStdout())
		},
	}

	flags = addFlags(cmd)

	return cmd
}

func addFlags(cmd *cobra.Command) *Flags {
	flags := &Flags{}

	cmd.Flags().BoolVar(&flags.FetchQuotes, "fetch-quotes", false,
		"Fetch quotes from every supplier before selection")
	cmd.Flags().BoolVar(&flags.SelectSuppliers, "select", false,
		"Select suppliers from the quotes already in the workspace")
	cmd.Flags().StringVar(&flags.Catalog, "catalog", "",
		"Catalog id for every part not found in a catalog")
	cmd.Flags().BoolVar(&flags.CreateBom, "create-bom", false,
		"Create the target BOM when it does not exist")
	cmd.Flags().StringVar(&flags.Report, "report", "",
		"Write a markdown report of the run to this file")
	cmd.Flags().BoolVar(&flags.UpdateCatalogProperties, "update-catalog-properties", false,
		"Refresh supplier properties of parts already in a catalog")
	cmd.Flags().BoolVar(&flags.NoSave, "no-save", false,
		"Do not write the updated workspace back to disk")
	cmd.Flags().StringVar(&flags.MetricsFile, "metrics-file", "",
		"Write Prometheus metrics of the run to this file (textfile collector format)")

	flags.Policies = cmdutil.AddPolicyFlags(cmd)
	flags.Target = cmdutil.AddTargetFlags(cmd)

	return flags
}
