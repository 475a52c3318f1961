package observability

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceStats_Record(t *testing.T) {
	s := NewSourceStats(time.Hour)
	s.Record("url/csv", 3, 1, time.Second, "")
	s.Record("url/csv", 0, 4, time.Second, "")
	s.Record("file/jsonl", 0, 0, time.Millisecond, "MALFORMED_JSON")

	top := s.Top(0)
	require.Len(t, top, 2)
	assert.Equal(t, "url/csv", top[0].Kind)
	assert.Equal(t, int64(2), top[0].Imports)
	assert.Equal(t, int64(3), top[0].Inserted)
	assert.Equal(t, int64(5), top[0].Skipped)
	assert.Equal(t, 2*time.Second, top[0].Elapsed)
	assert.Zero(t, top[0].Failures)

	assert.Equal(t, "file/jsonl", top[1].Kind)
	assert.Equal(t, int64(1), top[1].Failures)
	assert.Equal(t, map[string]int{"MALFORMED_JSON": 1}, top[1].Errors)
}

func TestSourceStats_TopLimitAndCopy(t *testing.T) {
	s := NewSourceStats(0)
	s.Record("a", 0, 0, 0, "X")
	s.Record("b", 0, 0, 0, "")
	s.Record("b", 0, 0, 0, "")

	top := s.Top(1)
	require.Len(t, top, 1)
	assert.Equal(t, "b", top[0].Kind)

	all := s.Top(0)
	all[1].Errors["X"] = 99
	assert.Equal(t, 1, s.Top(0)[1].Errors["X"])
}

func TestSourceStats_Prune(t *testing.T) {
	s := NewSourceStats(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	s.Record("old", 1, 0, 0, "")

	now = now.Add(2 * time.Minute)
	s.Record("new", 1, 0, 0, "")
	s.Prune()

	top := s.Top(0)
	require.Len(t, top, 1)
	assert.Equal(t, "new", top[0].Kind)
}

func TestSourceStats_Nil(t *testing.T) {
	var s *SourceStats
	s.Record("x", 1, 1, 0, "")
	s.Prune()
	assert.Empty(t, s.Top(3))
}

func TestSourceStats_Concurrent(t *testing.T) {
	s := NewSourceStats(time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Record("url/tsv", 1, 0, 0, "")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(800), s.Top(1)[0].Inserted)
}
