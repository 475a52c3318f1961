package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gulp-tools/gulp/internal/app"
)

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}

func newImportCmd(flags *globalFlags) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "import <source_id>",
		Short: "Import a data source into its list",
		Long: `Fetch and decode a registered data source and append every row whose
content is not yet in the list. Prints the import statistics as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceID, err := parseID(args[0], "source id")
			if err != nil {
				return err
			}
			return flags.withApp(cmd.Context(), nil, func(a *app.App, _ *slog.Logger) error {
				ctx := cmd.Context()
				ds, err := a.Catalog.GetDataSource(ctx, sourceID)
				if err != nil {
					return err
				}
				uid := userID
				if uid == 0 {
					uid = ds.UserID
				}
				l, unlock, err := a.Manager.Acquire(ctx, ds.ListID)
				if err != nil {
					return err
				}
				defer unlock()
				stats, err := l.UpdateFromSource(ctx, ds, uid)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				return enc.Encode(stats)
			})
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id the rows are attributed to (default: the source's creator)")
	return cmd
}

func newSnapshotCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <list_id>",
		Short: "Close the current revision of a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listID, err := parseID(args[0], "list id")
			if err != nil {
				return err
			}
			return flags.withApp(cmd.Context(), nil, func(a *app.App, _ *slog.Logger) error {
				l, unlock, err := a.Manager.Acquire(cmd.Context(), listID)
				if err != nil {
					return err
				}
				defer unlock()
				old := l.RevisionID
				next, err := l.Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\n", old, next)
				return nil
			})
		},
	}
}

func newListCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Create and inspect lists",
	}

	var schemaID, userID int64
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a list typed with a header schema; prints the list id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withApp(cmd.Context(), nil, func(a *app.App, _ *slog.Logger) error {
				l, err := a.Manager.CreateNew(cmd.Context(), args[0], schemaID, userID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), l.ID)
				return nil
			})
		},
	}
	create.Flags().Int64Var(&schemaID, "schema", 0, "header schema id")
	create.Flags().Int64Var(&userID, "user", 0, "user id that becomes the list admin")
	_ = create.MarkFlagRequired("schema")
	_ = create.MarkFlagRequired("user")

	info := &cobra.Command{
		Use:   "info <list_id>",
		Short: "Print a list, its current header and row count as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listID, err := parseID(args[0], "list id")
			if err != nil {
				return err
			}
			return flags.withApp(cmd.Context(), nil, func(a *app.App, _ *slog.Logger) error {
				l, unlock, err := a.Manager.Acquire(cmd.Context(), listID)
				if err != nil {
					return err
				}
				defer unlock()
				total, err := l.CountRows(cmd.Context(), l.RevisionID)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"list": l, "total": total})
			})
		},
	}

	cmd.AddCommand(create, info)
	return cmd
}
