package source

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	gerrors "github.com/gulp-tools/gulp/internal/errors"
	"github.com/gulp-tools/gulp/pkg/types"
)

// DefaultPagePileURL is the PagePile API template; {id} is the pile id.
const DefaultPagePileURL = "https://pagepile.toolforge.org/api.php?id={id}&action=get_data&doit&format=json&metadata=1"

// fileTransport reads uploaded files; the location is a file record id.
type fileTransport struct {
	files FileOpener
}

func (t *fileTransport) Open(ctx context.Context, ds *types.DataSource) (io.ReadCloser, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(ds.Location), 10, 64)
	if err != nil {
		return nil, gerrors.NewNotFoundError(gerrors.CodeFileRecordNotFound,
			fmt.Sprintf("No uploaded file %q", ds.Location))
	}
	if t.files == nil {
		return nil, gerrors.NewPreconditionError(gerrors.CodeUnsupportedSource, "File sources are not configured")
	}
	rc, _, err := t.files.Open(ctx, id)
	return rc, err
}

// urlTransport fetches the location with an HTTP GET.
type urlTransport struct {
	http Fetcher
}

func (t *urlTransport) Open(ctx context.Context, ds *types.DataSource) (io.ReadCloser, error) {
	if t.http == nil {
		return nil, gerrors.NewPreconditionError(gerrors.CodeUnsupportedSource, "URL sources are not configured")
	}
	return t.http.Get(ctx, strings.TrimSpace(ds.Location))
}

// pagePileTransport fetches a PagePile manifest; the location is the pile id.
type pagePileTransport struct {
	http     Fetcher
	template string
}

func newPagePileTransport(http Fetcher, template string) *pagePileTransport {
	if template == "" {
		template = DefaultPagePileURL
	}
	return &pagePileTransport{http: http, template: template}
}

func (t *pagePileTransport) Open(ctx context.Context, ds *types.DataSource) (io.ReadCloser, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(ds.Location), 10, 64)
	if err != nil {
		return nil, gerrors.NewPreconditionError(gerrors.CodeInvalidArgument,
			fmt.Sprintf("Invalid PagePile id %q", ds.Location))
	}
	if t.http == nil {
		return nil, gerrors.NewPreconditionError(gerrors.CodeUnsupportedSource, "PagePile sources are not configured")
	}
	return t.http.Get(ctx, strings.ReplaceAll(t.template, "{id}", strconv.FormatUint(id, 10)))
}
