package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gulp-tools/gulp/internal/cell"
	gerrors "github.com/gulp-tools/gulp/internal/errors"
)

// jsonlFormat reads one JSON array per line. Unlike the delimited formats a
// single bad line aborts the whole decode. The limit counts raw lines, blank
// ones included.
type jsonlFormat struct{}

func (f *jsonlFormat) Decode(ctx context.Context, r io.Reader, headers []cell.Column, limit int) (*CellSet, error) {
	var arrays [][]any
	br := bufio.NewReader(skipBOM(r))
	lineNo := 0
	for limit <= 0 || lineNo < limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, gerrors.NewTransportError(gerrors.CodeFetchFailed, "Could not read JSON lines source", err)
		}
		lineNo++
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			v, derr := cell.DecodeJSON([]byte(trimmed))
			if derr != nil {
				return nil, gerrors.NewDecodeError(gerrors.CodeMalformedJSON,
					fmt.Sprintf("Line %d is not valid JSON", lineNo), derr)
			}
			array, ok := v.([]any)
			if !ok {
				return nil, gerrors.NewDecodeError(gerrors.CodeMalformedJSON,
					fmt.Sprintf("Line %d is valid JSON but not an array", lineNo), nil)
			}
			arrays = append(arrays, array)
		}
		if err != nil {
			break
		}
	}

	cs := &CellSet{Headers: append([]cell.Column(nil), headers...)}
	if len(cs.Headers) == 0 {
		width := 0
		for _, a := range arrays {
			width = max(width, len(a))
		}
		for i := 0; i < width; i++ {
			cs.Headers = append(cs.Headers, cell.StringColumn())
		}
	}

	for _, a := range arrays {
		n := min(len(a), len(cs.Headers))
		cells := make([]cell.Cell, n)
		for i := 0; i < n; i++ {
			cells[i] = cell.FromValue(a[i], cs.Headers[i])
		}
		cs.Rows = append(cs.Rows, cells)
	}
	return cs, nil
}
