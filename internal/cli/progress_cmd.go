package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/diplomado/internal/app"
	"github.com/p-n-ai/diplomado/internal/progress"
	"github.com/p-n-ai/diplomado/internal/report"
)

func newProgressCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Inspect and correct learner progress",
	}

	cmd.AddCommand(
		newProgressShowCmd(a),
		newProgressToggleCmd(a),
		newProgressResetCmd(a),
		newProgressResetAICmd(a),
	)

	return cmd
}

func newProgressShowCmd(a *app.App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <userId>",
		Short: "Show one user's progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]
			doc, err := a.Portal.UserProgress(cmd.Context(), app.SystemPrincipal, userID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if asJSON {
				data, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			m := report.Build(a.Portal.Outline(), nil, map[string]progress.UserProgress{userID: doc})
			row := m.Rows[0]
			rows := make([][]string, 0, len(m.Columns))
			for i, c := range m.Columns {
				rows = append(rows, []string{c.ModuleLabel, c.ItemID, c.ItemLabel, row.Cells[i].Label()})
			}
			fmt.Fprint(out, renderTable([]string{"Módulo", "ID", "Ítem", "Estado"}, rows))

			if fa := doc.FinalAIAnalysis; fa != nil {
				fmt.Fprintf(out, "Evaluación final: completada %s\n", fa.SubmittedAt.Format("2006-01-02"))
			} else {
				fmt.Fprintln(out, "Evaluación final: pendiente")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw progress document")

	return cmd
}

func newProgressToggleCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <userId> <moduleId> <itemId>",
		Short: "Flip an item's completion",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			completed, err := a.Portal.ToggleItem(cmd.Context(), app.SystemPrincipal, args[0], args[1], args[2])
			if err != nil {
				return err
			}
			state := "pending"
			if completed {
				state = "completed"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s/%s for %s is now %s\n", args[1], args[2], args[0], state)
			return nil
		},
	}
}

func newProgressResetCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <userId>",
		Short: "Remove all of a user's progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Portal.ResetProgress(cmd.Context(), app.SystemPrincipal, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset progress for %s\n", args[0])
			return nil
		},
	}
}

func newProgressResetAICmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-ai <userId>",
		Short: "Remove a user's final analysis so they can retry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Portal.ResetFinalAnalysis(cmd.Context(), app.SystemPrincipal, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset final analysis for %s\n", args[0])
			return nil
		},
	}
}
