package diff

import (
	"errors"
	"fmt"
)

// Mark is the primary classification of a current-buffer line.
type Mark int

const (
	MarkNone Mark = iota
	MarkAdded
	MarkChanged
)

// String returns the string representation of Mark for Lua integration
func (m Mark) String() string {
	switch m {
	case MarkAdded:
		return "add"
	case MarkChanged:
		return "change"
	default:
		return "none"
	}
}

// Ghost is a block of deleted reference lines with no position of their own
// in current text. Row is the 1-based current line the block is displayed
// above; a Row of lineCount+1 means below the last line.
type Ghost struct {
	Row   int
	Lines []string
}

// Plan is the per-refresh annotation model: which current lines are painted
// Added or Changed, and where deleted content is shown as virtual lines.
// It is computed wholesale from a hunk sequence and replaced wholesale on
// the next refresh; it is never mutated incrementally.
type Plan struct {
	LineCount int
	Marks     map[int]Mark
	Ghosts    []Ghost
}

// Empty reports whether the plan annotates nothing.
func (p *Plan) Empty() bool {
	return len(p.Marks) == 0 && len(p.Ghosts) == 0
}

// ErrStale signals that the supplied hunks do not fit the supplied current
// line count. The caller must recompute the diff against current text
// rather than render misplaced annotations.
var ErrStale = errors.New("hunks inconsistent with current line count")

// Project maps hunks onto current-buffer coordinates.
//
// Counts are re-derived from each hunk's body rather than trusted from the
// header. Within a contiguous run of changed lines, Removed and Added lines
// pair up greedily in order: each Added line with a Removed line before it
// in the run becomes Changed, surplus Added lines stay Added, and surplus
// Removed lines stay pure ghosts. Deleted text is always retained as ghost
// content, including for Changed lines.
func Project(hunks []Hunk, lineCount int) (*Plan, error) {
	plan := &Plan{
		LineCount: lineCount,
		Marks:     make(map[int]Mark),
	}

	for i := range hunks {
		h := &hunks[i]
		newCount := h.DerivedNewCount()

		if h.NewStart < 1 {
			return nil, fmt.Errorf("hunk %d: new_start %d: %w", i, h.NewStart, ErrStale)
		}
		if newCount > 0 && h.NewStart+newCount-1 > lineCount {
			return nil, fmt.Errorf("hunk %d: lines %d-%d beyond %d: %w",
				i, h.NewStart, h.NewStart+newCount-1, lineCount, ErrStale)
		}
		if newCount == 0 && h.NewStart > lineCount+1 {
			return nil, fmt.Errorf("hunk %d: deletion anchor %d beyond %d: %w",
				i, h.NewStart, lineCount, ErrStale)
		}

		newPos := h.NewStart
		removedInRun := 0
		addedInRun := 0

		for _, l := range h.Lines {
			switch l.Kind {
			case Context:
				newPos++
				removedInRun = 0
				addedInRun = 0

			case Removed:
				plan.addGhostLine(newPos, l.Text)
				removedInRun++

			case Added:
				mark := MarkAdded
				if addedInRun < removedInRun {
					mark = MarkChanged
				}
				if plan.Marks[newPos] != MarkChanged {
					plan.Marks[newPos] = mark
				}
				addedInRun++
				newPos++
			}
		}
	}

	return plan, nil
}

// addGhostLine appends text to the ghost block anchored at row, opening a
// new block when the anchor moved.
func (p *Plan) addGhostLine(row int, text string) {
	if n := len(p.Ghosts); n > 0 && p.Ghosts[n-1].Row == row {
		p.Ghosts[n-1].Lines = append(p.Ghosts[n-1].Lines, text)
		return
	}
	p.Ghosts = append(p.Ghosts, Ghost{Row: row, Lines: []string{text}})
}
