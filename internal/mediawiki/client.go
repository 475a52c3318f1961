package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	gerrors "github.com/gulp-tools/gulp/internal/errors"
	"github.com/gulp-tools/gulp/internal/logging"
)

// DefaultAPIURL is the API endpoint template; {server} is the wiki host.
const DefaultAPIURL = "https://{server}/w/api.php"

// titlesPerRequest is the MediaWiki limit for anonymous title queries.
const titlesPerRequest = 50

// Options configure a Client.
type Options struct {
	UserAgent         string
	APIURL            string
	RequestsPerSecond float64
	Burst             int
	Concurrency       int
	Timeout           time.Duration
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// Client is a rate limited MediaWiki API client shared by all wikis.
type Client struct {
	http        *http.Client
	userAgent   string
	apiURL      string
	limiter     *rate.Limiter
	concurrency int
	logger      *slog.Logger

	nsMu    sync.RWMutex
	nsCache map[string]*SiteNamespaces
}

// NewClient builds a client. Zero options fall back to sensible defaults.
func NewClient(opts Options) *Client {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "gulp/0.1"
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		http:        hc,
		userAgent:   opts.UserAgent,
		apiURL:      opts.APIURL,
		limiter:     rate.NewLimiter(limit, opts.Burst),
		concurrency: opts.Concurrency,
		logger:      logging.OrDefault(opts.Logger),
		nsCache:     make(map[string]*SiteNamespaces),
	}
}

// UserAgent is the agent string sent with every request.
func (c *Client) UserAgent() string { return c.userAgent }

// HTTPClient exposes the shared HTTP client for other fetchers.
func (c *Client) HTTPClient() *http.Client { return c.http }

func (c *Client) endpoint(wiki string) (string, error) {
	server, err := ServerForWiki(wiki)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(c.apiURL, "{server}", server), nil
}

// Get fetches rawURL with the client's agent and rate limit. Non-2xx
// responses are transport errors.
func (c *Client) Get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, gerrors.NewTransportError(gerrors.CodeFetchFailed, "Request cancelled", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, gerrors.NewTransportError(gerrors.CodeFetchFailed, fmt.Sprintf("Invalid URL %q", rawURL), err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, gerrors.NewTransportError(gerrors.CodeFetchFailed, fmt.Sprintf("Failed to fetch %s", rawURL), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, gerrors.NewTransportError(gerrors.CodeFetchFailed,
			fmt.Sprintf("Fetching %s returned %s", rawURL, resp.Status), nil).
			WithDetails(map[string]interface{}{"status": resp.StatusCode})
	}
	return resp.Body, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return gerrors.NewDecodeError(gerrors.CodeMalformedJSON, fmt.Sprintf("Bad API response from %s", rawURL), err)
	}
	return nil
}

type infoResponse struct {
	Query struct {
		Pages []struct {
			Title   string `json:"title"`
			Missing bool   `json:"missing"`
		} `json:"pages"`
	} `json:"query"`
}

// CountExistingPages counts how many of titles exist on wiki. Titles are
// queried in batches of 50; a failed batch counts as zero existing pages.
func (c *Client) CountExistingPages(ctx context.Context, wiki string, titles []string) (int, error) {
	endpoint, err := c.endpoint(wiki)
	if err != nil {
		return 0, err
	}

	var batches [][]string
	for start := 0; start < len(titles); start += titlesPerRequest {
		end := min(start+titlesPerRequest, len(titles))
		batches = append(batches, titles[start:end])
	}

	counts := make([]int, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			q := url.Values{}
			q.Set("action", "query")
			q.Set("format", "json")
			q.Set("formatversion", "2")
			q.Set("prop", "info")
			q.Set("titles", strings.Join(batch, "|"))

			var resp infoResponse
			if err := c.getJSON(gctx, endpoint+"?"+q.Encode(), &resp); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.logger.Debug("page existence batch failed", "wiki", wiki, "titles", len(batch), "error", err)
				return nil
			}
			for _, p := range resp.Query.Pages {
				if !p.Missing {
					counts[i]++
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, gerrors.NewTransportError(gerrors.CodeFetchFailed, "Page existence check cancelled", err)
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}
