package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gulp-tools/gulp/internal/app"
)

func newUploadCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Manage uploaded source files",
	}

	var userID int64
	add := &cobra.Command{
		Use:   "add <path>",
		Short: "Upload a local file for FILE data sources; prints the file id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return flags.withApp(cmd.Context(), nil, func(a *app.App, _ *slog.Logger) error {
				rec, err := a.Uploads.Store(cmd.Context(), userID, filepath.Base(args[0]), f)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
				return nil
			})
		},
	}
	add.Flags().Int64Var(&userID, "user", 0, "user id owning the upload")
	_ = add.MarkFlagRequired("user")

	var dryRun bool
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete stored uploads no file record points to",
		Long: `Delete objects under the upload prefix that have no file record, printing
each path. Run it while the server is stopped or idle.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withApp(cmd.Context(), nil, func(a *app.App, _ *slog.Logger) error {
				orphans, err := a.Uploads.PruneOrphans(cmd.Context(), dryRun)
				for _, p := range orphans {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return err
			})
		},
	}
	prune.Flags().BoolVar(&dryRun, "dry-run", false, "only print the orphaned paths")

	cmd.AddCommand(add, prune)
	return cmd
}
