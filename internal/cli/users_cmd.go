package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/diplomado/internal/app"
	"github.com/p-n-ai/diplomado/internal/auth"
)

func newUsersCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage portal accounts",
	}

	cmd.AddCommand(
		newUsersListCmd(a),
		newUsersCreateCmd(a),
		newUsersStatusCmd("archive", "Archive an account", "Archived", a.Portal.ArchiveUser),
		newUsersStatusCmd("reactivate", "Reactivate an archived account", "Reactivated", a.Portal.ReactivateUser),
	)

	return cmd
}

func newUsersListCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.Portal.ListUsers(cmd.Context(), app.SystemPrincipal)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(users))
			for _, u := range users {
				rows = append(rows, []string{
					u.ID,
					u.Credentials.Username,
					u.PersonalData.FullName,
					string(u.Role),
					string(u.Status),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"ID", "Usuario", "Nombre", "Rol", "Estado"}, rows))
			return nil
		},
	}
}

func newUsersCreateCmd(a *app.App) *cobra.Command {
	var n auth.NewUser
	var role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n.Role = auth.Role(role)
			u, err := a.Portal.CreateUser(cmd.Context(), app.SystemPrincipal, n)
			if err != nil {
				if msg := auth.UserMessage(err); msg != "" {
					return errors.New(msg)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", u.Role, u.Credentials.Username, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&n.Username, "username", "", "Login name")
	cmd.Flags().StringVar(&n.Password, "password", "", "Initial password")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleStudent), "Role: student or administrator")
	cmd.Flags().StringVar(&n.PersonalData.FullName, "full-name", "", "Full name")
	cmd.Flags().StringVar(&n.PersonalData.IdentificationType, "id-type", "", "Identification document type")
	cmd.Flags().StringVar(&n.PersonalData.IdentificationNumber, "id-number", "", "Identification number")
	cmd.Flags().StringVar(&n.PersonalData.City, "city", "", "City")
	cmd.Flags().StringVar(&n.PersonalData.Country, "country", "", "Country")
	cmd.Flags().StringVar(&n.PersonalData.Profession, "profession", "", "Profession")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

type userAction func(ctx context.Context, pr auth.Principal, userID string) error

func newUsersStatusCmd(use, short, done string, action userAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <userId>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := action(cmd.Context(), app.SystemPrincipal, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s user %s\n", done, args[0])
			return nil
		},
	}
}
