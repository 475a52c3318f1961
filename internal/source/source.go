// Package source turns external data sources into typed cells. A source is
// fetched by a Transport (uploaded file, URL, PagePile) and parsed by a
// Format (CSV, TSV, JSON lines, PagePile manifest, Excel).
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gulp-tools/gulp/internal/cell"
	gerrors "github.com/gulp-tools/gulp/internal/errors"
	"github.com/gulp-tools/gulp/internal/logging"
	"github.com/gulp-tools/gulp/pkg/types"
)

// CellSet is a decoded source: the columns it was read with and its rows.
type CellSet struct {
	Headers []cell.Column
	Rows    [][]cell.Cell
}

// CellsInColumn returns the non-nil cells of column i across all rows.
func (cs *CellSet) CellsInColumn(i int) []cell.Cell {
	var out []cell.Cell
	for _, r := range cs.Rows {
		if i < len(r) && r[i] != nil {
			out = append(out, r[i])
		}
	}
	return out
}

// AsJSON renders the set as {"headers": [...], "rows": [[...], ...]}.
func (cs *CellSet) AsJSON() map[string]any {
	headers := cs.Headers
	if headers == nil {
		headers = []cell.Column{}
	}
	rows := make([][]any, len(cs.Rows))
	for i, r := range cs.Rows {
		values := make([]any, len(r))
		for j, c := range r {
			if c != nil && j < len(cs.Headers) {
				values[j] = c.AsJSON(cs.Headers[j])
			}
		}
		rows[i] = values
	}
	return map[string]any{"headers": headers, "rows": rows}
}

// appendStrings adds one row of raw text values, growing the header with
// String columns as needed.
func (cs *CellSet) appendStrings(values []string) {
	for len(cs.Headers) < len(values) {
		cs.Headers = append(cs.Headers, cell.StringColumn())
	}
	cells := make([]cell.Cell, len(values))
	for i, v := range values {
		cells[i] = cell.FromValue(v, cs.Headers[i])
	}
	cs.Rows = append(cs.Rows, cells)
}

// full reports whether limit rows have been collected; limit <= 0 means no limit.
func (cs *CellSet) full(limit int) bool {
	return limit > 0 && len(cs.Rows) >= limit
}

// Transport fetches the raw payload of a data source.
type Transport interface {
	Open(ctx context.Context, ds *types.DataSource) (io.ReadCloser, error)
}

// Format decodes a payload into cells. Empty headers let the format derive
// its own columns.
type Format interface {
	Decode(ctx context.Context, r io.Reader, headers []cell.Column, limit int) (*CellSet, error)
}

// Fetcher performs HTTP GET requests.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// FileOpener opens uploaded files by record id.
type FileOpener interface {
	Open(ctx context.Context, fileID int64) (io.ReadCloser, *types.File, error)
}

// TitleParser splits full page titles into title and namespace.
type TitleParser interface {
	ParseTitle(ctx context.Context, wiki, full string) (string, int64, error)
}

// Options configure a Pipeline.
type Options struct {
	Files  FileOpener
	HTTP   Fetcher
	Titles TitleParser
	Oracle cell.Oracle

	// PagePileURL is the PagePile API template; {id} is the pile id.
	PagePileURL string

	Logger *slog.Logger
}

// Pipeline resolves data sources to cell sets.
type Pipeline struct {
	fileTransport     Transport
	urlTransport      Transport
	pagePileTransport Transport

	csv      Format
	tsv      Format
	jsonl    Format
	pagePile Format
	excel    Format

	oracle cell.Oracle
	logger *slog.Logger
}

// NewPipeline builds a pipeline from its collaborators.
func NewPipeline(opts Options) *Pipeline {
	return &Pipeline{
		fileTransport:     &fileTransport{files: opts.Files},
		urlTransport:      &urlTransport{http: opts.HTTP},
		pagePileTransport: newPagePileTransport(opts.HTTP, opts.PagePileURL),
		csv:               &delimitedFormat{comma: ','},
		tsv:               &delimitedFormat{comma: '\t'},
		jsonl:             &jsonlFormat{},
		pagePile:          &pagePileFormat{titles: opts.Titles},
		excel:             &excelFormat{},
		oracle:            opts.Oracle,
		logger:            logging.OrDefault(opts.Logger),
	}
}

func (p *Pipeline) transport(t types.SourceType) (Transport, error) {
	switch t {
	case types.SourceFile:
		return p.fileTransport, nil
	case types.SourceURL:
		return p.urlTransport, nil
	case types.SourcePagePile:
		return p.pagePileTransport, nil
	}
	return nil, gerrors.NewPreconditionError(gerrors.CodeUnsupportedSource,
		fmt.Sprintf("Unsupported source type %q", t))
}

func (p *Pipeline) format(f types.SourceFormat) (Format, error) {
	switch f {
	case types.FormatCSV:
		return p.csv, nil
	case types.FormatTSV:
		return p.tsv, nil
	case types.FormatJSONL:
		return p.jsonl, nil
	case types.FormatPagePile:
		return p.pagePile, nil
	case types.FormatExcel:
		return p.excel, nil
	}
	return nil, gerrors.NewPreconditionError(gerrors.CodeUnsupportedSource,
		fmt.Sprintf("Unsupported source format %q", f))
}

// GetCells decodes up to limit rows of ds under the given headers.
func (p *Pipeline) GetCells(ctx context.Context, ds *types.DataSource, headers []cell.Column, limit int) (*CellSet, error) {
	start := time.Now()
	tr, err := p.transport(ds.SourceType)
	if err != nil {
		return nil, err
	}
	f, err := p.format(ds.SourceFormat)
	if err != nil {
		return nil, err
	}

	rc, err := tr.Open(ctx, ds)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	cs, err := f.Decode(ctx, rc, headers, limit)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("decoded source",
		"source_id", ds.ID, "type", ds.SourceType, "format", ds.SourceFormat,
		"rows", len(cs.Rows), "columns", len(cs.Headers), logging.Since(start))
	return cs, nil
}

// GuessHeaders decodes ds with derived String columns, infers a better type
// for every column from the sampled cells, and decodes again with the
// inferred columns. The payload is fetched once.
func (p *Pipeline) GuessHeaders(ctx context.Context, ds *types.DataSource, limit int) (*CellSet, error) {
	start := time.Now()
	tr, err := p.transport(ds.SourceType)
	if err != nil {
		return nil, err
	}
	f, err := p.format(ds.SourceFormat)
	if err != nil {
		return nil, err
	}

	rc, err := tr.Open(ctx, ds)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, gerrors.NewTransportError(gerrors.CodeFetchFailed, "Could not read source payload", err)
	}

	first, err := f.Decode(ctx, bytes.NewReader(data), nil, limit)
	if err != nil {
		return nil, err
	}
	samples := make([][]cell.Cell, len(first.Headers))
	for i := range first.Headers {
		samples[i] = first.CellsInColumn(i)
	}
	guessed, err := cell.GuessAll(ctx, first.Headers, samples, p.oracle)
	if err != nil {
		return nil, err
	}

	cs, err := f.Decode(ctx, bytes.NewReader(data), guessed, limit)
	if err != nil {
		return nil, err
	}
	p.logger.Info("guessed headers",
		"source_id", ds.ID, "type", ds.SourceType, "format", ds.SourceFormat,
		"rows", len(cs.Rows), "columns", len(cs.Headers), logging.Since(start))
	return cs, nil
}
