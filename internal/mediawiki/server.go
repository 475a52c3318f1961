// Package mediawiki talks to MediaWiki APIs: page existence checks used by
// column type inference, and namespace metadata used to parse page titles.
package mediawiki

import (
	"fmt"
	"strings"

	gerrors "github.com/gulp-tools/gulp/internal/errors"
)

var specialServers = map[string]string{
	"wikidatawiki":  "www.wikidata.org",
	"commonswiki":   "commons.wikimedia.org",
	"metawiki":      "meta.wikimedia.org",
	"specieswiki":   "species.wikimedia.org",
	"mediawikiwiki": "www.mediawiki.org",
	"sourceswiki":   "wikisource.org",
}

var projectSuffixes = []string{
	"wiktionary", "wikisource", "wikiquote", "wikibooks",
	"wikinews", "wikiversity", "wikivoyage",
}

// ServerForWiki maps a database name like "dewiki" or "frwikisource" to its
// host name.
func ServerForWiki(wiki string) (string, error) {
	wiki = strings.ToLower(strings.TrimSpace(wiki))
	if host, ok := specialServers[wiki]; ok {
		return host, nil
	}
	for _, project := range projectSuffixes {
		if lang, ok := strings.CutSuffix(wiki, project); ok && validLang(lang) {
			return fmt.Sprintf("%s.%s.org", langHost(lang), project), nil
		}
	}
	if lang, ok := strings.CutSuffix(wiki, "wiki"); ok && validLang(lang) {
		return langHost(lang) + ".wikipedia.org", nil
	}
	return "", gerrors.NewTransportError(gerrors.CodeFetchFailed,
		fmt.Sprintf("Unknown wiki %q", wiki), nil)
}

func validLang(lang string) bool {
	if lang == "" {
		return false
	}
	for _, r := range lang {
		if (r < 'a' || r > 'z') && r != '_' {
			return false
		}
	}
	return true
}

// langHost turns database name language codes into host labels
// (be_x_oldwiki is be-x-old.wikipedia.org).
func langHost(lang string) string {
	return strings.ReplaceAll(lang, "_", "-")
}
