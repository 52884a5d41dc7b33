package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/diplomado/internal/app"
)

func newImportCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <export.json>",
		Short: "Import users and progress from a browser storage export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading export: %w", err)
			}
			res, err := a.ImportLegacy(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d users (%d skipped) and %d progress documents\n",
				res.UsersImported, res.UsersSkipped, res.ProgressImported)
			return nil
		},
	}
}

func newExportCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Write the progress matrix as an XLSX workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			if err := a.Portal.ExportProgress(cmd.Context(), app.SystemPrincipal, &buf); err != nil {
				return err
			}
			if err := os.WriteFile(args[0], buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("writing workbook: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[0])
			return nil
		},
	}
}
