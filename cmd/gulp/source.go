package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gulp-tools/gulp/internal/app"
	"github.com/gulp-tools/gulp/pkg/types"
)

type sourceFlags struct {
	typ      string
	format   string
	location string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.typ, "type", "", "source type: url, file, pagepile")
	cmd.Flags().StringVar(&f.format, "format", "", "source format: csv, tsv, jsonl, pagepile, excel")
	cmd.Flags().StringVar(&f.location, "location", "", "URL, uploaded file id or PagePile id")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("format")
	_ = cmd.MarkFlagRequired("location")
}

func (f *sourceFlags) dataSource() (*types.DataSource, error) {
	st, ok := types.ParseSourceType(f.typ)
	if !ok {
		return nil, fmt.Errorf("unsupported source type %q", f.typ)
	}
	sf, ok := types.ParseSourceFormat(f.format)
	if !ok {
		return nil, fmt.Errorf("unsupported source format %q", f.format)
	}
	return &types.DataSource{SourceType: st, SourceFormat: sf, Location: f.location}, nil
}

func newSourceCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Manage data sources",
	}

	var sf sourceFlags
	var listID, userID int64
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a data source on a list; prints the source id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := sf.dataSource()
			if err != nil {
				return err
			}
			ds.ListID, ds.UserID = listID, userID
			return flags.withApp(cmd.Context(), nil, func(a *app.App, _ *slog.Logger) error {
				if err := a.Manager.CreateDataSource(cmd.Context(), ds); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ds.ID)
				return nil
			})
		},
	}
	sf.register(add)
	add.Flags().Int64Var(&listID, "list", 0, "list id")
	add.Flags().Int64Var(&userID, "user", 0, "user id registering the source")
	_ = add.MarkFlagRequired("list")

	cmd.AddCommand(add)
	return cmd
}

func newGuessCmd(flags *globalFlags) *cobra.Command {
	var sf sourceFlags
	var limit int
	cmd := &cobra.Command{
		Use:   "guess",
		Short: "Preview a source with inferred column types",
		Long: `Fetch a source without registering it, infer a column type for every
column from the sampled rows and print the headers and rows as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := sf.dataSource()
			if err != nil {
				return err
			}
			return flags.withApp(cmd.Context(), nil, func(a *app.App, _ *slog.Logger) error {
				n := limit
				if n <= 0 {
					n = a.Config().Ingest.GuessLimit
				}
				cs, err := a.Manager.GuessHeaders(cmd.Context(), ds, n)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cs.AsJSON())
			})
		},
	}
	sf.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 0, "rows to sample (default: ingest.guess_limit)")
	return cmd
}
