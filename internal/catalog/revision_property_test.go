package catalog

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/gulp-tools/gulp/internal/row"
)

// TestProperty_RevisionResolution checks that the rows visible at revision R
// are, per row_num, the write with the greatest revision not after R.
func TestProperty_RevisionResolution(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("visible rows follow the newest revision per row_num", prop.ForAll(
		func(rowNums []int64, revs []int64, asOf int64) bool {
			listID, err := c.CreateList(ctx, "prop")
			if err != nil {
				return false
			}

			// model[rowNum][rev] = json
			model := map[int64]map[int64]string{}
			var batch []*row.Row
			for i := 0; i < len(rowNums) && i < len(revs); i++ {
				rn, rev := rowNums[i], revs[i]
				if model[rn] == nil {
					model[rn] = map[int64]string{}
				}
				if _, dup := model[rn][rev]; dup {
					continue
				}
				js := fmt.Sprintf(`["%d@%d"]`, rn, rev)
				model[rn][rev] = js
				batch = append(batch, &row.Row{ListID: listID, RowNum: rn, RevisionID: rev, JSON: js, JSONMD5: row.MD5(js), UserID: 1})
			}
			if err := c.InsertRows(ctx, batch); err != nil {
				return false
			}

			var want []string
			var nums []int64
			for rn := range model {
				nums = append(nums, rn)
			}
			sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
			for _, rn := range nums {
				best := int64(-1)
				for rev := range model[rn] {
					if rev <= asOf && rev > best {
						best = rev
					}
				}
				if best >= 0 {
					want = append(want, model[rn][best])
				}
			}

			got, err := c.RowsForRevision(ctx, listID, asOf, 0, 0)
			if err != nil || len(got) != len(want) {
				return false
			}
			for i := range got {
				if got[i].JSON != want[i] {
					return false
				}
			}
			n, err := c.CountRowsForRevision(ctx, listID, asOf)
			return err == nil && n == int64(len(want))
		},
		gen.SliceOfN(20, gen.Int64Range(1, 6)),
		gen.SliceOfN(20, gen.Int64Range(0, 4)),
		gen.Int64Range(0, 5),
	))

	properties.TestingRun(t)
}
