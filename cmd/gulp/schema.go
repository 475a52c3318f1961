package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gulp-tools/gulp/internal/app"
)

func newSchemaCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage header schemas",
	}

	var name, js string
	create := &cobra.Command{
		Use:   "create",
		Short: "Store a header schema; prints its id",
		Example: `  gulp schema create --name cities \
    --json '{"columns":[{"column_type":"WikiPage","wiki":"dewiki"},{"column_type":"Location"}]}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withApp(cmd.Context(), nil, func(a *app.App, _ *slog.Logger) error {
				s, err := a.Manager.CreateHeaderSchema(cmd.Context(), name, js)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), s.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "schema name (generated from the columns when empty)")
	create.Flags().StringVar(&js, "json", "", `schema document {"columns":[...]}`)
	_ = create.MarkFlagRequired("json")

	list := &cobra.Command{
		Use:   "list",
		Short: "List header schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withApp(cmd.Context(), nil, func(a *app.App, _ *slog.Logger) error {
				schemas, err := a.Catalog.ListHeaderSchemas(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, s := range schemas {
					js, err := s.ColumnsJSON()
					if err != nil {
						return err
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\n", s.ID, s.Name, js)
				}
				return tw.Flush()
			})
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}
