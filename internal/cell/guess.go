package cell

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Oracle answers how many of the given titles exist as pages on a wiki.
type Oracle interface {
	CountExistingPages(ctx context.Context, wiki string, titles []string) (int, error)
}

// CandidateWikis are tried, in order, when a text column might hold page
// titles. On equal counts the earlier wiki wins.
var CandidateWikis = []string{"enwiki", "dewiki", "frwiki", "nlwiki", "itwiki"}

const (
	wikidataWiki = "wikidatawiki"
	commonsWiki  = "commonswiki"
)

type guessStats struct {
	total        int
	notEmpty     int
	wikidata     int
	wikidataNS0  int
	location     int
	files        []string
	pagesToCheck []string
}

func collectStats(col Column, cells []Cell) guessStats {
	var st guessStats
	for _, c := range cells {
		if c == nil {
			continue
		}
		st.total++
		if c.AsString(col) != "" {
			st.notEmpty++
		}
		switch v := c.(type) {
		case String:
			s := string(v)
			if reWikidata.MatchString(s) {
				st.wikidata++
			}
			if reWikidataItem.MatchString(s) {
				st.wikidataNS0++
			}
			if reFile.MatchString(s) {
				st.files = append(st.files, "File:"+s)
			}
			st.pagesToCheck = append(st.pagesToCheck, strings.ReplaceAll(s, "_", " "))
			if reLocation.MatchString(s) {
				st.location++
			}
		case Location:
			st.location++
		}
	}
	return st
}

// Guess infers a better type for a plain String column from its sampled
// cells. Columns with any other declaration are returned unchanged.
func Guess(ctx context.Context, col Column, cells []Cell, oracle Oracle) (Column, error) {
	if col.Type != TypeString || col.HasDefaults() {
		return col, nil
	}
	st := collectStats(col, cells)
	if st.location >= st.notEmpty {
		return Column{Type: TypeLocation}, nil
	}
	threshold := st.total * 9 / 10

	if len(st.pagesToCheck) > 0 {
		wiki, best, err := bestCandidate(ctx, oracle, st.pagesToCheck)
		if err != nil {
			return col, err
		}
		if wiki != "" && best > threshold {
			return WikiPageColumn(wiki, nil), nil
		}
	}

	commonsFiles := 0
	if len(st.files) > 0 {
		n, err := oracle.CountExistingPages(ctx, commonsWiki, st.files)
		if err != nil {
			return col, err
		}
		commonsFiles = n
	}

	if st.wikidata == st.total {
		var ns *int64
		if st.wikidataNS0 == st.total {
			zero := int64(0)
			ns = &zero
		}
		return WikiPageColumn(wikidataWiki, ns), nil
	}
	if commonsFiles >= threshold && commonsFiles > 0 {
		six := int64(6)
		return WikiPageColumn(commonsWiki, &six), nil
	}
	return col, nil
}

// bestCandidate returns the candidate wiki with the strictly highest count.
func bestCandidate(ctx context.Context, oracle Oracle, titles []string) (string, int, error) {
	counts := make([]int, len(CandidateWikis))
	g, gctx := errgroup.WithContext(ctx)
	for i, wiki := range CandidateWikis {
		g.Go(func() error {
			n, err := oracle.CountExistingPages(gctx, wiki, titles)
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", 0, err
	}
	best, bestWiki := 0, ""
	for i, n := range counts {
		if n > best {
			best, bestWiki = n, CandidateWikis[i]
		}
	}
	return bestWiki, best, nil
}

// GuessAll runs Guess for every column concurrently. samples[i] holds the
// cells of column i.
func GuessAll(ctx context.Context, cols []Column, samples [][]Cell, oracle Oracle) ([]Column, error) {
	out := make([]Column, len(cols))
	g, gctx := errgroup.WithContext(ctx)
	for i, col := range cols {
		var cells []Cell
		if i < len(samples) {
			cells = samples[i]
		}
		g.Go(func() error {
			guessed, err := Guess(gctx, col, cells, oracle)
			if err != nil {
				return err
			}
			out[i] = guessed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
