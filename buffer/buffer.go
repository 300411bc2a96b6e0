package buffer

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/neovim/go-client/nvim"

	"unified/diff"
	"unified/logger"
	"unified/types"
)

type Config struct {
	NsID int
}

// NvimBuffer wraps the nvim client for one editor connection. It reads
// buffer state with the batch API and paints annotation plans as extmarks.
type NvimBuffer struct {
	client *nvim.Nvim // stored internally, set via SetClient

	lines    []string
	row      int // 1-indexed
	path     string
	id       nvim.Buffer
	winWidth int

	config Config
}

func New(config Config) *NvimBuffer {
	return &NvimBuffer{
		lines:  []string{},
		row:    1,
		path:   "",
		id:     nvim.Buffer(0),
		config: config,
	}
}

// SetClient stores the nvim client for all buffer operations
func (b *NvimBuffer) SetClient(n *nvim.Nvim) {
	b.client = n
}

// Accessor methods implementing engine.Buffer interface

func (b *NvimBuffer) Lines() []string { return b.lines }

func (b *NvimBuffer) LineCount() int { return len(b.lines) }

func (b *NvimBuffer) Path() string { return b.path }

func (b *NvimBuffer) Row() int { return b.row }

// SyncResult reports what Sync observed.
type SyncResult struct {
	BufferChanged bool
	OldPath       string
	NewPath       string
}

// Sync reads current editor state in a single batch round-trip.
func (b *NvimBuffer) Sync() (*SyncResult, error) {
	defer logger.Trace("buffer.Sync")()
	if b.client == nil {
		return nil, fmt.Errorf("nvim client not set")
	}

	batch := b.client.NewBatch()

	var currentBuf nvim.Buffer
	var path string
	var lines [][]byte
	var cursor [2]int
	var winWidth int

	batch.CurrentBuffer(&currentBuf)
	batch.BufferName(nvim.Buffer(0), &path) // 0 = current buffer
	batch.BufferLines(nvim.Buffer(0), 0, -1, false, &lines)
	batch.WindowCursor(nvim.Window(0), &cursor)
	batch.ExecLua(`return vim.fn.winwidth(0)`, &winWidth, nil)

	if err := batch.Execute(); err != nil {
		logger.Error("error executing sync batch: %v", err)
		return nil, err
	}

	linesStr := make([]string, len(lines))
	for i, line := range lines {
		linesStr[i] = string(line)
	}

	oldPath := b.path

	b.lines = linesStr
	b.row = cursor[0]
	b.path = path
	b.winWidth = winWidth

	changed := b.id != currentBuf
	b.id = currentBuf

	return &SyncResult{
		BufferChanged: changed,
		OldPath:       oldPath,
		NewPath:       path,
	}, nil
}

// ApplyPlan replaces whatever is displayed with the given plan in one
// batch: the namespace clear and every extmark land in a single atomic
// round-trip, so no reader observes a half-applied state.
func (b *NvimBuffer) ApplyPlan(plan *diff.Plan, styles types.Styles) error {
	if b.client == nil {
		return fmt.Errorf("nvim client not set")
	}

	batch := b.client.NewBatch()
	batch.ClearBufferNamespace(b.id, b.config.NsID, 0, -1)

	// Batch results must outlive Execute; collect extmark ids in one slice.
	ids := make([]int, 0, len(plan.Marks)+len(plan.Ghosts))
	addID := func() *int {
		ids = append(ids, 0)
		return &ids[len(ids)-1]
	}

	for lineNum, mark := range plan.Marks {
		style := styles.Add
		if mark == diff.MarkChanged {
			style = styles.Change
		}

		opts := map[string]interface{}{
			"line_hl_group": style.Highlight,
			"priority":      10,
		}
		if style.Sign != "" {
			opts["sign_text"] = style.Sign
			opts["sign_hl_group"] = style.Highlight
		}
		if style.Symbol != "" {
			opts["virt_text"] = []interface{}{
				[]interface{}{style.Symbol, style.Highlight},
			}
			opts["virt_text_pos"] = "eol"
		}

		batch.SetBufferExtmark(b.id, b.config.NsID, lineNum-1, 0, opts, addID())
	}

	for _, ghost := range plan.Ghosts {
		line, above := ghostAnchor(ghost, plan.LineCount)

		virtLines := make([]interface{}, 0, len(ghost.Lines))
		for _, text := range ghost.Lines {
			virtLines = append(virtLines, []interface{}{
				[]interface{}{padLine(text, b.winWidth), styles.Delete.Highlight},
			})
		}

		opts := map[string]interface{}{
			"virt_lines":       virtLines,
			"virt_lines_above": above,
		}
		batch.SetBufferExtmark(b.id, b.config.NsID, line, 0, opts, addID())
	}

	if err := batch.Execute(); err != nil {
		logger.Error("error applying plan: %v", err)
		return err
	}

	logger.Debug("applied plan: %d marks, %d ghost blocks on %s",
		len(plan.Marks), len(plan.Ghosts), b.path)
	return nil
}

// Clear removes every annotation this namespace placed, in one operation.
func (b *NvimBuffer) Clear() error {
	if b.client == nil {
		return fmt.Errorf("nvim client not set")
	}

	batch := b.client.NewBatch()
	batch.ClearBufferNamespace(b.id, b.config.NsID, 0, -1)
	return batch.Execute()
}

// RegisterEventHandler registers a handler for nvim RPC events from the
// Lua side. Events arrive as a name plus an optional argument.
func (b *NvimBuffer) RegisterEventHandler(handler func(event, arg string)) error {
	if b.client == nil {
		return fmt.Errorf("nvim client not set")
	}
	return b.client.RegisterHandler("unified_event", func(_ *nvim.Nvim, event string, arg string) {
		handler(event, arg)
	})
}

// ghostAnchor converts a ghost's 1-based anchor row into a 0-based extmark
// line plus the virt_lines_above flag. A row one past the last line renders
// below the final line instead.
func ghostAnchor(ghost diff.Ghost, lineCount int) (int, bool) {
	if ghost.Row > lineCount {
		if lineCount == 0 {
			return 0, true
		}
		return lineCount - 1, false
	}
	return ghost.Row - 1, true
}

// padLine extends text with spaces to the window width so the deletion
// highlight covers the whole virtual line, not just the text.
func padLine(text string, width int) string {
	w := runewidth.StringWidth(text)
	if width <= w {
		return text
	}
	return text + strings.Repeat(" ", width-w)
}
