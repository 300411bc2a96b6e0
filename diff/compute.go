package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// SplitLines splits text by newline and removes the trailing empty element
// left by a final newline.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// JoinLines joins lines into newline-terminated text.
func JoinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Compute derives hunks directly from two line sequences. For a given pair
// of texts it yields the same annotation model as parsing an externally
// produced unified diff of them (see Format for the reverse direction).
//
// Hunks carry no context lines, contain only the changed regions, are
// ordered by ascending NewStart and never overlap. Identical inputs yield a
// nil slice.
func Compute(oldLines, newLines []string) []Hunk {
	oldText := JoinLines(oldLines)
	newText := JoinLines(newLines)
	if oldText == newText {
		return nil
	}

	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(chars1, chars2, false)
	lineDiffs := dmp.DiffCharsToLines(diffs, lineArray)

	var hunks []Hunk
	oldPos := 0 // reference lines consumed
	newPos := 0 // current lines consumed
	var cur *Hunk

	flush := func() {
		if cur != nil {
			hunks = append(hunks, *cur)
			cur = nil
		}
	}

	for _, d := range lineDiffs {
		lines := SplitLines(d.Text)

		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			oldPos += len(lines)
			newPos += len(lines)

		case diffmatchpatch.DiffDelete:
			if cur == nil {
				cur = &Hunk{OldStart: oldPos + 1, NewStart: newPos + 1}
			}
			for _, l := range lines {
				cur.Lines = append(cur.Lines, Line{Kind: Removed, Text: l})
			}
			cur.OldCount += len(lines)
			oldPos += len(lines)

		case diffmatchpatch.DiffInsert:
			if cur == nil {
				cur = &Hunk{OldStart: oldPos + 1, NewStart: newPos + 1}
			}
			for _, l := range lines {
				cur.Lines = append(cur.Lines, Line{Kind: Added, Text: l})
			}
			cur.NewCount += len(lines)
			newPos += len(lines)
		}
	}
	flush()

	return hunks
}

// Format renders hunks as standard unified-diff hunk text, converting the
// before-anchored zero-count starts back to git's preceding-line convention.
// Parse(Format(hunks)) reproduces the input.
func Format(hunks []Hunk) string {
	var b strings.Builder

	for _, h := range hunks {
		oldStart, oldCount := h.OldStart, h.DerivedOldCount()
		newStart, newCount := h.NewStart, h.DerivedNewCount()
		if oldCount == 0 {
			oldStart--
		}
		if newCount == 0 {
			newStart--
		}
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)

		for _, l := range h.Lines {
			switch l.Kind {
			case Added:
				b.WriteString("+")
			case Removed:
				b.WriteString("-")
			default:
				b.WriteString(" ")
			}
			b.WriteString(l.Text)
			b.WriteString("\n")
		}
	}

	return b.String()
}
