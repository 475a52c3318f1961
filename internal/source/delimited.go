package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"io"

	"github.com/gulp-tools/gulp/internal/cell"
	gerrors "github.com/gulp-tools/gulp/internal/errors"
)

// delimitedFormat reads CSV and TSV without a header row. Records may have
// any number of fields; records that fail to parse are skipped.
type delimitedFormat struct {
	comma rune
}

func (f *delimitedFormat) Decode(ctx context.Context, r io.Reader, headers []cell.Column, limit int) (*CellSet, error) {
	cr := csv.NewReader(skipBOM(r))
	cr.Comma = f.comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	cs := &CellSet{Headers: append([]cell.Column(nil), headers...)}
	for !cs.full(limit) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, gerrors.NewTransportError(gerrors.CodeFetchFailed, "Could not read delimited source", err)
		}
		cs.appendStrings(record)
	}
	return cs, nil
}

// skipBOM drops a leading UTF-8 byte order mark.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = br.Discard(3)
	}
	return br
}
