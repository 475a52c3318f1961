package main

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gulp-tools/gulp/internal/app"
	"github.com/gulp-tools/gulp/pkg/types"
)

func newUserCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users and API tokens",
	}

	var wiki bool
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a user with a fresh API token; prints id and token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withApp(cmd.Context(), nil, func(a *app.App, _ *slog.Logger) error {
				ctx := cmd.Context()
				var id int64
				if wiki {
					u, err := a.Catalog.GetOrCreateWikiUser(ctx, args[0])
					if err != nil {
						return err
					}
					id = u.ID
				} else {
					var err error
					if id, err = a.Catalog.CreateUser(ctx, args[0], false); err != nil {
						return err
					}
				}
				token := uuid.NewString()
				if err := a.Catalog.SetAuthToken(ctx, id, token); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", id, token)
				return nil
			})
		},
	}
	create.Flags().BoolVar(&wiki, "wiki", false, "create (or reuse) a wiki account user")

	var listID int64
	var right string
	grant := &cobra.Command{
		Use:   "grant <user_id>",
		Short: "Grant a right on a list; user 5 stands for everyone logged in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			return flags.withApp(cmd.Context(), nil, func(a *app.App, _ *slog.Logger) error {
				return a.Catalog.AddAccess(cmd.Context(), listID, userID, types.Right(right))
			})
		},
	}
	grant.Flags().Int64Var(&listID, "list", 0, "list id")
	grant.Flags().StringVar(&right, "right", string(types.RightWrite), "right to grant")
	_ = grant.MarkFlagRequired("list")

	cmd.AddCommand(create, grant)
	return cmd
}
