package mediawiki

import (
	"context"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Namespace describes one namespace of a wiki.
type Namespace struct {
	ID        int64  `json:"id"`
	Case      string `json:"case"`
	Name      string `json:"name"`
	Canonical string `json:"canonical"`
}

// SiteNamespaces indexes a wiki's namespaces by every name they are known
// under: local name, canonical name and aliases.
type SiteNamespaces struct {
	ByID   map[int64]Namespace
	byName map[string]int64
}

type siteinfoResponse struct {
	Query struct {
		Namespaces map[string]Namespace `json:"namespaces"`
		Aliases    []struct {
			ID    int64  `json:"id"`
			Alias string `json:"alias"`
		} `json:"namespacealiases"`
	} `json:"query"`
}

func newSiteNamespaces(resp *siteinfoResponse) *SiteNamespaces {
	sn := &SiteNamespaces{ByID: map[int64]Namespace{}, byName: map[string]int64{}}
	for _, ns := range resp.Query.Namespaces {
		sn.ByID[ns.ID] = ns
		if ns.ID == 0 {
			continue
		}
		sn.byName[normalizeNamespace(ns.Name)] = ns.ID
		if ns.Canonical != "" {
			sn.byName[normalizeNamespace(ns.Canonical)] = ns.ID
		}
	}
	for _, a := range resp.Query.Aliases {
		sn.byName[normalizeNamespace(a.Alias)] = a.ID
	}
	return sn
}

func normalizeNamespace(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "_", " ")))
}

// Namespaces returns the namespace table of a wiki, cached per wiki.
func (c *Client) Namespaces(ctx context.Context, wiki string) (*SiteNamespaces, error) {
	c.nsMu.RLock()
	sn, ok := c.nsCache[wiki]
	c.nsMu.RUnlock()
	if ok {
		return sn, nil
	}

	endpoint, err := c.endpoint(wiki)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("action", "query")
	q.Set("meta", "siteinfo")
	q.Set("siprop", "namespaces|namespacealiases")
	q.Set("format", "json")
	q.Set("formatversion", "2")
	var resp siteinfoResponse
	if err := c.getJSON(ctx, endpoint+"?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	sn = newSiteNamespaces(&resp)

	c.nsMu.Lock()
	c.nsCache[wiki] = sn
	c.nsMu.Unlock()
	return sn, nil
}

// Parse splits a full page title into its prettified title and namespace id.
// A prefix that names no namespace leaves the title in the main namespace.
func (sn *SiteNamespaces) Parse(full string) (string, int64) {
	full = strings.TrimSpace(strings.ReplaceAll(full, "_", " "))
	var nsID int64
	title := full
	if prefix, rest, ok := strings.Cut(full, ":"); ok {
		if id, known := sn.byName[normalizeNamespace(prefix)]; known {
			nsID = id
			title = strings.TrimSpace(rest)
		}
	}
	if sn.ByID[nsID].Case != "case-sensitive" {
		title = ucFirst(title)
	}
	return title, nsID
}

// ParseTitle resolves a full title against the wiki's namespaces.
func (c *Client) ParseTitle(ctx context.Context, wiki, full string) (string, int64, error) {
	sn, err := c.Namespaces(ctx, wiki)
	if err != nil {
		return "", 0, err
	}
	title, ns := sn.Parse(full)
	return title, ns, nil
}

func ucFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
