package diff

import (
	"regexp"
	"strconv"
	"strings"
)

// hunkHeaderPat matches the standard unified-diff hunk header. The ,count
// parts are optional; a single-line region omits them.
var hunkHeaderPat = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Parse converts unified-diff text into an ordered sequence of hunks.
//
// It is total: malformed or truncated input degrades to fewer (or zero)
// hunks, never an error. File headers (---/+++), "diff --git" lines, index
// lines and any tool banner text outside a hunk body are skipped. Inside a
// hunk body, lines are classified by their first character; a line with no
// recognized prefix (e.g. a literal blank line standing in for an empty
// context line) is treated as empty context.
func Parse(diffText string) []Hunk {
	var hunks []Hunk
	var cur *Hunk

	flush := func() {
		if cur != nil {
			hunks = append(hunks, *cur)
			cur = nil
		}
	}

	for _, raw := range strings.Split(diffText, "\n") {
		if m := hunkHeaderPat.FindStringSubmatch(raw); m != nil {
			flush()
			cur = &Hunk{
				OldStart: atoiDefault(m[1], 1),
				OldCount: atoiDefault(m[2], 1),
				NewStart: atoiDefault(m[3], 1),
				NewCount: atoiDefault(m[4], 1),
			}
			// Git anchors a zero-count side at the preceding line.
			// Normalize to our before-anchored convention (start >= 1).
			if cur.OldCount == 0 {
				cur.OldStart++
			}
			if cur.NewCount == 0 {
				cur.NewStart++
			}
			continue
		}

		if cur == nil {
			// Not inside a hunk body: file headers, banners, etc.
			continue
		}

		switch {
		case strings.HasPrefix(raw, "+"):
			cur.Lines = append(cur.Lines, Line{Kind: Added, Text: raw[1:]})
		case strings.HasPrefix(raw, "-"):
			cur.Lines = append(cur.Lines, Line{Kind: Removed, Text: raw[1:]})
		case strings.HasPrefix(raw, " "):
			cur.Lines = append(cur.Lines, Line{Kind: Context, Text: raw[1:]})
		case raw == "":
			// Some tools emit zero-length context lines without the
			// leading space. Only count it if the body is still open;
			// a trailing newline at end of input would otherwise add a
			// phantom context line.
			if cur.DerivedOldCount() < cur.OldCount || cur.DerivedNewCount() < cur.NewCount {
				cur.Lines = append(cur.Lines, Line{Kind: Context, Text: ""})
			}
		case strings.HasPrefix(raw, `\`):
			// "\ No newline at end of file" - metadata, not content
		default:
			// Unrecognized content closes the body (e.g. the next file's
			// headers in a multi-file diff).
			flush()
		}
	}

	flush()
	return hunks
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
