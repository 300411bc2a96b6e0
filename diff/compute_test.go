package diff

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeIdenticalTexts(t *testing.T) {
	lines := []string{"a", "b", "c"}
	assert.Nil(t, Compute(lines, lines), "identical texts yield no hunks")
	assert.Nil(t, Compute(nil, nil), "empty texts yield no hunks")
}

func TestComputeChangedLine(t *testing.T) {
	old := []string{"line 1", "line 2", "line 3"}
	cur := []string{"line 1", "changed", "line 3"}

	hunks := Compute(old, cur)

	assert.Len(t, hunks, 1, "one hunk")
	h := hunks[0]
	assert.Equal(t, 2, h.OldStart, "OldStart")
	assert.Equal(t, 2, h.NewStart, "NewStart")
	assert.Equal(t, []Line{
		{Kind: Removed, Text: "line 2"},
		{Kind: Added, Text: "changed"},
	}, h.Lines, "lines")
}

func TestComputePureInsertion(t *testing.T) {
	old := []string{"a", "b"}
	cur := []string{"a", "inserted", "b"}

	hunks := Compute(old, cur)

	assert.Len(t, hunks, 1, "one hunk")
	h := hunks[0]
	assert.Equal(t, 0, h.DerivedOldCount(), "no reference lines spanned")
	assert.Equal(t, 2, h.OldStart, "insertion sits before old line 2")
	assert.Equal(t, 2, h.NewStart, "NewStart")
	assert.Equal(t, []Line{{Kind: Added, Text: "inserted"}}, h.Lines, "lines")
}

func TestComputePureDeletion(t *testing.T) {
	old := []string{"a", "gone", "b"}
	cur := []string{"a", "b"}

	hunks := Compute(old, cur)

	assert.Len(t, hunks, 1, "one hunk")
	h := hunks[0]
	assert.Equal(t, 0, h.DerivedNewCount(), "no current lines spanned")
	assert.Equal(t, 2, h.OldStart, "OldStart")
	assert.Equal(t, 2, h.NewStart, "deletion sits before current line 2")
	assert.Equal(t, []Line{{Kind: Removed, Text: "gone"}}, h.Lines, "lines")
}

func TestComputeEmptyReference(t *testing.T) {
	cur := []string{"a", "b", "c"}

	hunks := Compute(nil, cur)

	assert.Len(t, hunks, 1, "one hunk")
	h := hunks[0]
	assert.Equal(t, 1, h.OldStart, "OldStart")
	assert.Equal(t, 0, h.DerivedOldCount(), "pure insertion")
	assert.Equal(t, 1, h.NewStart, "NewStart")
	assert.Equal(t, cur, h.NewLines(), "every current line added")
}

func TestComputeOrderingAndNoOverlap(t *testing.T) {
	old := []string{"1", "2", "3", "4", "5", "6", "7", "8"}
	cur := []string{"1", "x", "3", "4", "y", "6", "7", "z", "w"}

	hunks := Compute(old, cur)

	assert.GreaterOrEqual(t, len(hunks), 2, "separated regions produce separate hunks")
	for i := 1; i < len(hunks); i++ {
		prev, h := hunks[i-1], hunks[i]
		assert.Greater(t, h.NewStart, prev.NewStart, "ascending NewStart")
		assert.GreaterOrEqual(t, h.NewStart, prev.NewStart+prev.DerivedNewCount(), "no overlap in new coordinates")
		assert.GreaterOrEqual(t, h.OldStart, prev.OldStart+prev.DerivedOldCount(), "no overlap in old coordinates")
	}
}

func TestComputeRoundTripReconstruction(t *testing.T) {
	old := []string{"line 1", "line 2", "line 3", "line 4", "line 5"}
	cur := []string{"modified line 1", "line 2", "line 4", "new line", "line 5"}

	hunks := Compute(old, cur)

	sumOld, sumNew := 0, 0
	for _, h := range hunks {
		oldSlice := old[h.OldStart-1 : h.OldStart-1+h.DerivedOldCount()]
		newSlice := cur[h.NewStart-1 : h.NewStart-1+h.DerivedNewCount()]
		assert.Equal(t, oldSlice, padEmpty(h.OldLines()), "Context+Removed reconstructs reference slice")
		assert.Equal(t, newSlice, padEmpty(h.NewLines()), "Context+Added reconstructs current slice")
		sumOld += h.DerivedOldCount()
		sumNew += h.DerivedNewCount()
	}

	assert.Equal(t, 2, sumOld, "reference lines touched")
	assert.Equal(t, 2, sumNew, "current lines touched")
}

// padEmpty maps an empty reconstruction to the empty non-nil slice so it
// compares equal to a zero-length subslice.
func padEmpty(lines []string) []string {
	if len(lines) == 0 {
		return []string{}
	}
	return lines
}

func TestFormatParseRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		old  []string
		cur  []string
	}{
		{"change", []string{"a", "b", "c"}, []string{"a", "x", "c"}},
		{"insertion", []string{"a", "b"}, []string{"a", "new", "b"}},
		{"deletion", []string{"a", "b", "c"}, []string{"a", "c"}},
		{"top insertion", []string{"a"}, []string{"new", "a"}},
		{"tail deletion", []string{"a", "b"}, []string{"a"}},
		{"everything", []string{"1", "2", "3", "4", "5"}, []string{"one", "2", "4", "plus", "5"}},
		{"from empty", nil, []string{"a", "b"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hunks := Compute(tc.old, tc.cur)
			parsed := Parse(Format(hunks))
			if len(hunks) == 0 {
				assert.Empty(t, parsed, "no hunks")
				return
			}
			assert.True(t, reflect.DeepEqual(hunks, parsed),
				"Parse(Format(hunks)) reproduces hunks:\n%#v\nvs\n%#v", hunks, parsed)
		})
	}
}

func TestComputeAndParseProjectIdentically(t *testing.T) {
	// The two legitimate input paths (derive from line sequences vs parse
	// tool output with context lines) must yield the same annotations.
	old := []string{"line 1", "line 2", "line 3", "line 4", "line 5"}
	cur := []string{"modified line 1", "line 2", "line 4", "new line", "line 5"}

	toolOutput := `--- a/file
+++ b/file
@@ -1,5 +1,5 @@
-line 1
+modified line 1
 line 2
-line 3
 line 4
+new line
 line 5
`

	computed, err := Project(Compute(old, cur), len(cur))
	assert.NoError(t, err, "projecting computed hunks")
	parsed, err := Project(Parse(toolOutput), len(cur))
	assert.NoError(t, err, "projecting parsed hunks")

	assert.Equal(t, computed.Marks, parsed.Marks, "marks agree")
	assert.Equal(t, computed.Ghosts, parsed.Ghosts, "ghosts agree")
}
