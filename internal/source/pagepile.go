package source

import (
	"context"
	"encoding/json"
	"io"
	"sort"

	"github.com/gulp-tools/gulp/internal/cell"
	gerrors "github.com/gulp-tools/gulp/internal/errors"
)

// pagePileFormat reads a PagePile manifest {"wiki": ..., "pages": {title: ...}}
// into a single WikiPage column bound to the pile's wiki. Declared headers
// are ignored.
type pagePileFormat struct {
	titles TitleParser
}

func badManifest(msg string) error {
	return gerrors.NewTransportError(gerrors.CodeBadManifest, "PagePile: "+msg, nil)
}

func (f *pagePileFormat) Decode(ctx context.Context, r io.Reader, _ []cell.Column, limit int) (*CellSet, error) {
	var manifest map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&manifest); err != nil {
		return nil, gerrors.NewDecodeError(gerrors.CodeMalformedJSON, "PagePile: invalid JSON", err)
	}

	rawWiki, ok := manifest["wiki"]
	if !ok {
		return nil, badManifest("no field 'wiki'")
	}
	var wiki string
	if err := json.Unmarshal(rawWiki, &wiki); err != nil {
		return nil, badManifest("field 'wiki' is not a string")
	}
	rawPages, ok := manifest["pages"]
	if !ok {
		return nil, badManifest("no field 'pages'")
	}
	var pages map[string]json.RawMessage
	if err := json.Unmarshal(rawPages, &pages); err != nil || pages == nil {
		return nil, badManifest("field 'pages' is not an object")
	}

	titles := make([]string, 0, len(pages))
	for t := range pages {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	if limit > 0 && len(titles) > limit {
		titles = titles[:limit]
	}

	cs := &CellSet{Headers: []cell.Column{cell.WikiPageColumn(wiki, nil)}}
	if len(titles) > 0 && f.titles == nil {
		return nil, gerrors.NewPreconditionError(gerrors.CodeUnsupportedSource, "PagePile titles cannot be parsed without a wiki client")
	}
	for _, full := range titles {
		title, ns, err := f.titles.ParseTitle(ctx, wiki, full)
		if err != nil {
			return nil, err
		}
		w := wiki
		cs.Rows = append(cs.Rows, []cell.Cell{cell.WikiPage{Title: title, NamespaceID: &ns, Wiki: &w}})
	}
	return cs, nil
}
