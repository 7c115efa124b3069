package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/bomsync/cmd/bomsync/cmd/optimize"
	"github.com/agentstation/bomsync/cmd/bomsync/cmd/reconcile"
	"github.com/agentstation/bomsync/cmd/bomsync/cmd/upload"
	"github.com/agentstation/bomsync/cmd/bomsync/cmd/version"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(optimize.NewCommand(a))
	rootCmd.AddCommand(reconcile.NewCommand(a))
	rootCmd.AddCommand(upload.NewCommand(a))

	rootCmd.AddCommand(version.NewCommand(a))
}
