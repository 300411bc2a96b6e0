package diff

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectEmpty(t *testing.T) {
	plan, err := Project(nil, 10)
	assert.NoError(t, err, "no hunks")
	assert.True(t, plan.Empty(), "nothing annotated")
	assert.Equal(t, 10, plan.LineCount, "line count recorded")
}

func TestProjectMixedScenario(t *testing.T) {
	// Reference: line 1..line 5. Current: line 1 modified, line 3 deleted,
	// "new line" inserted before line 5.
	old := []string{"line 1", "line 2", "line 3", "line 4", "line 5"}
	cur := []string{"modified line 1", "line 2", "line 4", "new line", "line 5"}

	plan, err := Project(Compute(old, cur), len(cur))
	assert.NoError(t, err, "projection")

	assert.Equal(t, map[int]Mark{
		1: MarkChanged,
		4: MarkAdded,
	}, plan.Marks, "marks")
	assert.Equal(t, []Ghost{
		{Row: 1, Lines: []string{"line 1"}},
		{Row: 3, Lines: []string{"line 3"}},
	}, plan.Ghosts, "ghosts")
}

func TestProjectPureInsertionHasNoGhosts(t *testing.T) {
	old := []string{"a", "b"}
	cur := []string{"a", "x", "y", "b"}

	plan, err := Project(Compute(old, cur), len(cur))
	assert.NoError(t, err, "projection")

	assert.Equal(t, map[int]Mark{2: MarkAdded, 3: MarkAdded}, plan.Marks, "inserted lines marked Added")
	assert.Empty(t, plan.Ghosts, "no deleted content")
}

func TestProjectPureDeletionHasNoMarks(t *testing.T) {
	old := []string{"a", "b", "c"}
	cur := []string{"a", "c"}

	plan, err := Project(Compute(old, cur), len(cur))
	assert.NoError(t, err, "projection")

	assert.Empty(t, plan.Marks, "no current line touched")
	assert.Equal(t, []Ghost{{Row: 2, Lines: []string{"b"}}}, plan.Ghosts, "deleted line above its successor")
}

func TestProjectDeletionAtEndOfFile(t *testing.T) {
	old := []string{"a", "b", "c"}
	cur := []string{"a"}

	plan, err := Project(Compute(old, cur), len(cur))
	assert.NoError(t, err, "projection")

	assert.Empty(t, plan.Marks, "no marks")
	assert.Len(t, plan.Ghosts, 1, "one ghost block")
	assert.Equal(t, 2, plan.Ghosts[0].Row, "anchored one past the last line")
	assert.Equal(t, []string{"b", "c"}, plan.Ghosts[0].Lines, "both trailing lines in one block")
}

func TestProjectDeleteEverything(t *testing.T) {
	old := []string{"a", "b"}

	plan, err := Project(Compute(old, nil), 0)
	assert.NoError(t, err, "deletion anchor lineCount+1 is valid on an empty buffer")
	assert.Equal(t, []Ghost{{Row: 1, Lines: []string{"a", "b"}}}, plan.Ghosts, "whole reference as one ghost block")
}

func TestProjectSurplusRemovedStaysGhost(t *testing.T) {
	// Three removed, one added: one pair becomes Changed, the other two
	// removed lines remain pure ghosts (still retained as ghost content).
	hunks := []Hunk{{
		OldStart: 1, OldCount: 3, NewStart: 1, NewCount: 1,
		Lines: []Line{
			{Kind: Removed, Text: "r1"},
			{Kind: Removed, Text: "r2"},
			{Kind: Removed, Text: "r3"},
			{Kind: Added, Text: "a1"},
		},
	}}

	plan, err := Project(hunks, 5)
	assert.NoError(t, err, "projection")

	assert.Equal(t, map[int]Mark{1: MarkChanged}, plan.Marks, "single pair marked Changed")
	assert.Equal(t, []Ghost{{Row: 1, Lines: []string{"r1", "r2", "r3"}}}, plan.Ghosts, "all removed text kept")
}

func TestProjectSurplusAddedStaysAdded(t *testing.T) {
	hunks := []Hunk{{
		OldStart: 1, OldCount: 1, NewStart: 1, NewCount: 3,
		Lines: []Line{
			{Kind: Removed, Text: "r1"},
			{Kind: Added, Text: "a1"},
			{Kind: Added, Text: "a2"},
			{Kind: Added, Text: "a3"},
		},
	}}

	plan, err := Project(hunks, 5)
	assert.NoError(t, err, "projection")

	assert.Equal(t, map[int]Mark{
		1: MarkChanged,
		2: MarkAdded,
		3: MarkAdded,
	}, plan.Marks, "only the paired line is Changed")
}

func TestProjectContextResetsPairing(t *testing.T) {
	// A context line between the removal and the addition splits the run,
	// so the addition is a plain Added, not a Changed.
	hunks := []Hunk{{
		OldStart: 1, OldCount: 2, NewStart: 1, NewCount: 2,
		Lines: []Line{
			{Kind: Removed, Text: "r1"},
			{Kind: Context, Text: "keep"},
			{Kind: Added, Text: "a1"},
		},
	}}

	plan, err := Project(hunks, 5)
	assert.NoError(t, err, "projection")

	assert.Equal(t, map[int]Mark{2: MarkAdded}, plan.Marks, "pairing does not cross context")
	assert.Equal(t, []Ghost{{Row: 1, Lines: []string{"r1"}}}, plan.Ghosts, "ghost stays at its own anchor")
}

func TestProjectDeterministic(t *testing.T) {
	old := []string{"1", "2", "3", "4", "5", "6"}
	cur := []string{"one", "2", "4", "four and a half", "5", "six"}
	hunks := Compute(old, cur)

	first, err := Project(hunks, len(cur))
	assert.NoError(t, err, "first projection")
	second, err := Project(hunks, len(cur))
	assert.NoError(t, err, "second projection")

	assert.True(t, reflect.DeepEqual(first, second), "same hunks, same plan")
}

func TestProjectStaleHunks(t *testing.T) {
	cases := []struct {
		name      string
		hunks     []Hunk
		lineCount int
	}{
		{
			"new_start below one",
			[]Hunk{{OldStart: 1, NewStart: 0, Lines: []Line{{Kind: Added, Text: "a"}}}},
			5,
		},
		{
			"body beyond buffer end",
			[]Hunk{{OldStart: 1, NewStart: 4, Lines: []Line{
				{Kind: Added, Text: "a"},
				{Kind: Added, Text: "b"},
				{Kind: Added, Text: "c"},
			}}},
			5,
		},
		{
			"deletion anchor beyond buffer end",
			[]Hunk{{OldStart: 1, NewStart: 7, Lines: []Line{{Kind: Removed, Text: "r"}}}},
			5,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := Project(tc.hunks, tc.lineCount)
			assert.ErrorIs(t, err, ErrStale, "stale detected")
			assert.Nil(t, plan, "no partial plan")
		})
	}
}

func TestProjectTrustsBodyOverHeader(t *testing.T) {
	// Header claims two added lines, body holds one. The derived count is
	// what matters, so this fits a 1-line buffer.
	hunks := []Hunk{{
		OldStart: 1, OldCount: 0, NewStart: 1, NewCount: 2,
		Lines: []Line{{Kind: Added, Text: "only"}},
	}}

	plan, err := Project(hunks, 1)
	assert.NoError(t, err, "derived counts govern validation")
	assert.Equal(t, map[int]Mark{1: MarkAdded}, plan.Marks, "marks")
}
