package cell

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOracle answers from a fixed set of existing titles per wiki.
type fakeOracle struct {
	mu     sync.Mutex
	pages  map[string]map[string]bool
	calls  map[string]int
	failOn string
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{pages: map[string]map[string]bool{}, calls: map[string]int{}}
}

func (f *fakeOracle) add(wiki string, titles ...string) {
	if f.pages[wiki] == nil {
		f.pages[wiki] = map[string]bool{}
	}
	for _, t := range titles {
		f.pages[wiki][t] = true
	}
}

func (f *fakeOracle) CountExistingPages(_ context.Context, wiki string, titles []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[wiki]++
	if wiki == f.failOn {
		return 0, errors.New("api unavailable")
	}
	n := 0
	for _, t := range titles {
		if f.pages[wiki][t] {
			n++
		}
	}
	return n, nil
}

func stringCells(values ...string) []Cell {
	out := make([]Cell, len(values))
	for i, v := range values {
		out[i] = String(v)
	}
	return out
}

func TestGuess_KeepsDeclaredColumns(t *testing.T) {
	oracle := newFakeOracle()
	cols := []Column{
		WikiPageColumn("enwiki", nil),
		{Type: TypeLocation},
		{Type: TypeString, Literal: ptrStr("x")},
	}
	for _, col := range cols {
		got, err := Guess(context.Background(), col, stringCells("Q1", "Q2"), oracle)
		require.NoError(t, err)
		assert.Equal(t, col, got)
	}
	assert.Empty(t, oracle.calls)
}

func TestGuess_Location(t *testing.T) {
	oracle := newFakeOracle()
	got, err := Guess(context.Background(), StringColumn(), stringCells("52.5, 13.4", "1,2", ""), oracle)
	require.NoError(t, err)
	assert.Equal(t, TypeLocation, got.Type)
	assert.Empty(t, oracle.calls)

	// A column without any non-empty value is classified as location too.
	got, err = Guess(context.Background(), StringColumn(), nil, oracle)
	require.NoError(t, err)
	assert.Equal(t, TypeLocation, got.Type)
}

func TestGuess_CandidateWiki(t *testing.T) {
	oracle := newFakeOracle()
	oracle.add("dewiki", "Berlin", "Hamburg", "Bremen", "Köln Hbf")
	oracle.add("enwiki", "Berlin", "Hamburg")

	got, err := Guess(context.Background(), StringColumn(), stringCells("Berlin", "Hamburg", "Bremen", "Köln_Hbf"), oracle)
	require.NoError(t, err)
	assert.Equal(t, WikiPageColumn("dewiki", nil), got)
	for _, wiki := range CandidateWikis {
		assert.Equal(t, 1, oracle.calls[wiki], wiki)
	}
}

func TestGuess_CandidateTieGoesToFirst(t *testing.T) {
	oracle := newFakeOracle()
	oracle.add("frwiki", "Paris")
	oracle.add("itwiki", "Paris")

	got, err := Guess(context.Background(), StringColumn(), stringCells("Paris"), oracle)
	require.NoError(t, err)
	assert.Equal(t, WikiPageColumn("frwiki", nil), got)
}

func TestGuess_Wikidata(t *testing.T) {
	oracle := newFakeOracle()

	got, err := Guess(context.Background(), StringColumn(), stringCells("Q1", "Q42", "Q64"), oracle)
	require.NoError(t, err)
	assert.Equal(t, WikiPageColumn("wikidatawiki", ptrInt(0)), got)

	got, err = Guess(context.Background(), StringColumn(), stringCells("Q1", "P31"), oracle)
	require.NoError(t, err)
	assert.Equal(t, WikiPageColumn("wikidatawiki", nil), got)
}

func TestGuess_CommonsFiles(t *testing.T) {
	oracle := newFakeOracle()
	files := []string{"a.jpg", "b.png", "c.tif", "d.jpeg", "e.jpg", "f.jpg", "g.jpg", "h.jpg", "i.jpg", "j.jpg"}
	for _, f := range files[:9] {
		oracle.add("commonswiki", "File:"+f)
	}

	got, err := Guess(context.Background(), StringColumn(), stringCells(files...), oracle)
	require.NoError(t, err)
	assert.Equal(t, WikiPageColumn("commonswiki", ptrInt(6)), got)
	assert.Equal(t, 1, oracle.calls["commonswiki"])
}

func TestGuess_FallsBackToString(t *testing.T) {
	oracle := newFakeOracle()
	oracle.add("enwiki", "Berlin")

	got, err := Guess(context.Background(), StringColumn(), stringCells("Berlin", "no such page", "another one"), oracle)
	require.NoError(t, err)
	assert.Equal(t, StringColumn(), got)
	assert.Zero(t, oracle.calls["commonswiki"])
}

func TestGuess_OracleError(t *testing.T) {
	oracle := newFakeOracle()
	oracle.failOn = "nlwiki"

	_, err := Guess(context.Background(), StringColumn(), stringCells("Berlin"), oracle)
	assert.Error(t, err)
}

func TestGuessAll(t *testing.T) {
	oracle := newFakeOracle()
	cols := []Column{StringColumn(), StringColumn(), WikiPageColumn("enwiki", nil)}
	samples := [][]Cell{
		stringCells("Q5", "Q6"),
		stringCells("1, 2"),
	}

	got, err := GuessAll(context.Background(), cols, samples, oracle)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, WikiPageColumn("wikidatawiki", ptrInt(0)), got[0])
	assert.Equal(t, TypeLocation, got[1].Type)
	assert.Equal(t, cols[2], got[2])
}
