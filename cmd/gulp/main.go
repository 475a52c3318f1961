// Command gulp serves and maintains versioned tabular lists.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gulp-tools/gulp/internal/app"
	"github.com/gulp-tools/gulp/internal/config"
	"github.com/gulp-tools/gulp/internal/logging"
)

var (
	version = "dev"
	commit  = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	dataDir    string
	logLevel   string
	envFile    string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "gulp",
		Short:         "Versioned tabular lists fed from external data sources",
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "path to configuration file (YAML or JSON)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "base directory for the database and local storage")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&flags.envFile, "env-file", ".env", "optional .env file loaded before GULP_* variables")

	root.AddCommand(
		newServeCmd(flags),
		newImportCmd(flags),
		newSnapshotCmd(flags),
		newSchemaCmd(flags),
		newListCmd(flags),
		newSourceCmd(flags),
		newGuessCmd(flags),
		newUserCmd(flags),
		newUploadCmd(flags),
	)
	return root
}

// loadConfig applies defaults < file < env < flags.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(f.envFile); err != nil {
		return nil, err
	}
	cfg := config.DefaultConfig()
	if f.configFile != "" {
		var err error
		cfg, err = config.LoadFromFile(f.configFile)
		if err != nil {
			return nil, err
		}
	}
	config.LoadFromEnv(cfg)
	if f.dataDir != "" {
		cfg.DataDir = f.dataDir
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	return cfg, nil
}

// withApp opens the shared resources, runs fn and closes them again.
func (f *globalFlags) withApp(ctx context.Context, adjust func(*config.Config), fn func(*app.App, *slog.Logger) error) error {
	cfg, err := f.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if adjust != nil {
		adjust(cfg)
	}
	logger, logCloser := logging.New(cfg.Log)
	defer logCloser.Close()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a, logger)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
