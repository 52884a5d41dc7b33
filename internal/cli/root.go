// Package cli implements the diplomadoctl operator commands.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/p-n-ai/diplomado/internal/app"
)

// NewRootCmd creates the top-level "diplomadoctl" command and registers all
// subcommands against the provided App.
func NewRootCmd(a *app.App) *cobra.Command {
	root := &cobra.Command{
		Use:           "diplomadoctl",
		Short:         "Administer the diplomado portal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newUsersCmd(a),
		newProgressCmd(a),
		newImportCmd(a),
		newExportCmd(a),
	)

	return root
}
