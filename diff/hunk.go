package diff

// Kind classifies a single line within a hunk.
type Kind int

const (
	Context Kind = iota
	Added
	Removed
)

// String returns the string representation of Kind for Lua integration
func (k Kind) String() string {
	switch k {
	case Context:
		return "context"
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Line is one classified line inside a hunk. Text carries the line content
// without the leading diff marker.
type Line struct {
	Kind Kind
	Text string
}

// Hunk is one contiguous change region between a reference text and a
// current text.
//
// OldStart/NewStart are 1-indexed. When OldCount is 0 the hunk is a pure
// insertion sitting before reference line OldStart; when NewCount is 0 it is
// a pure deletion sitting before current line NewStart. This differs from
// the raw git header convention (where a zero-count start names the
// *preceding* line); Parse and Format translate at the boundary.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// DerivedOldCount counts the Context+Removed lines in the body. Header
// counts are advisory metadata duplicating the body, so consumers should
// trust the body.
func (h *Hunk) DerivedOldCount() int {
	n := 0
	for _, l := range h.Lines {
		if l.Kind != Added {
			n++
		}
	}
	return n
}

// DerivedNewCount counts the Context+Added lines in the body.
func (h *Hunk) DerivedNewCount() int {
	n := 0
	for _, l := range h.Lines {
		if l.Kind != Removed {
			n++
		}
	}
	return n
}

// OldLines reconstructs the slice of reference text this hunk spans.
func (h *Hunk) OldLines() []string {
	out := make([]string, 0, h.DerivedOldCount())
	for _, l := range h.Lines {
		if l.Kind != Added {
			out = append(out, l.Text)
		}
	}
	return out
}

// NewLines reconstructs the slice of current text this hunk spans.
func (h *Hunk) NewLines() []string {
	out := make([]string, 0, h.DerivedNewCount())
	for _, l := range h.Lines {
		if l.Kind != Removed {
			out = append(out, l.Text)
		}
	}
	return out
}
