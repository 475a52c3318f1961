package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gulp-tools/gulp/internal/app"
	"github.com/gulp-tools/gulp/internal/config"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API until SIGINT or SIGTERM.

In-flight requests are drained before the catalog and storage are closed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			adjust := func(cfg *config.Config) {
				if addr != "" {
					cfg.HTTP.Addr = addr
				}
			}
			return flags.withApp(cmd.Context(), adjust, func(a *app.App, logger *slog.Logger) error {
				cfg := a.Config()
				logger.Info("starting gulp", "version", version, "addr", cfg.HTTP.Addr,
					"data_dir", cfg.DataDir, "database", cfg.Database.Driver, "storage", cfg.Storage.Type)
				return a.Serve(cmd.Context())
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides http.addr)")
	return cmd
}
