package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/neovim/go-client/nvim"

	"unified/buffer"
	"unified/diff"
	"unified/logger"
	"unified/types"
)

// Buffer is the editor surface the engine reads from and paints on.
// *buffer.NvimBuffer implements it; tests substitute a fake.
type Buffer interface {
	SetClient(n *nvim.Nvim)
	Sync() (*buffer.SyncResult, error)
	Lines() []string
	LineCount() int
	Path() string
	ApplyPlan(plan *diff.Plan, styles types.Styles) error
	Clear() error
	RegisterEventHandler(handler func(event, arg string)) error
}

// Reference supplies baseline content and externally produced diff text.
type Reference interface {
	Lines(ctx context.Context, ref, path string) ([]string, bool, error)
	DiffText(ctx context.Context, oldLines, newLines []string) (string, error)
	RelPath(ctx context.Context, absolute string) string
	Invalidate()
}

type Config struct {
	NsID               int
	Ref                string // commit-ish baseline, default HEAD
	AutoRefresh        bool
	TextChangeDebounce time.Duration
	DiffMode           string // "internal" (compute) or "git" (parse tool output)
	Styles             types.Styles
}

// Engine owns the host-side annotation state: the currently displayed plan
// per file, the active reference, and the refresh lifecycle. Refreshes are
// serialized through a single event loop; every refresh is a full
// recomputation and the resulting plan replaces the old one atomically.
type Engine struct {
	mu     sync.Mutex
	buf    Buffer
	source Reference
	config Config

	enabled   bool
	ref       string
	displayed map[string]*diff.Plan // keyed by buffer path

	eventChan       chan event
	textChangeTimer *time.Timer

	mainCtx    context.Context
	mainCancel context.CancelFunc
	stopped    bool
	stopOnce   sync.Once
}

type event struct {
	name   string
	arg    string
	reason types.RefreshReason
}

func New(buf Buffer, source Reference, config Config) *Engine {
	if config.Ref == "" {
		config.Ref = "HEAD"
	}
	if config.DiffMode == "" {
		config.DiffMode = "internal"
	}

	return &Engine{
		buf:       buf,
		source:    source,
		config:    config,
		enabled:   true,
		ref:       config.Ref,
		displayed: make(map[string]*diff.Plan),
		eventChan: make(chan event, 100),
	}
}

func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.mainCtx, e.mainCancel = context.WithCancel(ctx)
	e.mu.Unlock()

	go e.eventLoop(e.mainCtx)
	logger.Info("engine started (ref=%s, auto_refresh=%v)", e.ref, e.config.AutoRefresh)
}

// Stop shuts down the event loop and timers.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.stopped = true
		if e.textChangeTimer != nil {
			e.textChangeTimer.Stop()
		}
		if e.mainCancel != nil {
			e.mainCancel()
		}
	})
}

// SetNvim wires a freshly connected editor into the engine and registers
// the RPC event handler the Lua side notifies.
func (e *Engine) SetNvim(n *nvim.Nvim) {
	e.buf.SetClient(n)
	if err := e.buf.RegisterEventHandler(e.Post); err != nil {
		logger.Error("error registering event handler: %v", err)
	}
	e.Post("buf_enter", "")
}

// Post queues a host event. Known events: refresh, clear, toggle,
// set_ref (arg = commit-ish), text_changed, buf_enter, buf_closed.
func (e *Engine) Post(name, arg string) {
	select {
	case e.eventChan <- event{name: name, arg: arg}:
	default:
		logger.Warn("event queue full, dropping %q", name)
	}
}

// NotifyRefMoved is called by the repository watcher when the baseline may
// have changed underneath us.
func (e *Engine) NotifyRefMoved() {
	e.source.Invalidate()
	select {
	case e.eventChan <- event{name: "refresh", reason: types.RefreshRefMoved}:
	default:
	}
}

func (e *Engine) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.eventChan:
			e.handleEvent(ctx, ev)
		}
	}
}

func (e *Engine) handleEvent(ctx context.Context, ev event) {
	logger.Debug("event: %s %q", ev.name, ev.arg)

	switch ev.name {
	case "refresh":
		reason := ev.reason
		if reason == "" {
			reason = types.RefreshManual
		}
		e.refresh(ctx, reason)

	case "buf_enter":
		if e.isEnabled() {
			e.refresh(ctx, types.RefreshBufEnter)
		}

	case "text_changed":
		if !e.config.AutoRefresh || !e.isEnabled() {
			return
		}
		e.scheduleRefresh()

	case "clear":
		e.clearCurrent()

	case "buf_closed":
		e.mu.Lock()
		delete(e.displayed, ev.arg)
		e.mu.Unlock()

	case "toggle":
		if e.toggle() {
			e.refresh(ctx, types.RefreshManual)
		} else {
			e.clearCurrent()
		}

	case "set_ref":
		if ev.arg == "" {
			return
		}
		e.mu.Lock()
		e.ref = ev.arg
		e.mu.Unlock()
		e.source.Invalidate()
		e.refresh(ctx, types.RefreshManual)

	default:
		logger.Warn("unknown event %q", ev.name)
	}
}

// scheduleRefresh debounces bursty text-changed events into one refresh.
func (e *Engine) scheduleRefresh() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	if e.textChangeTimer != nil {
		e.textChangeTimer.Stop()
	}
	e.textChangeTimer = time.AfterFunc(e.config.TextChangeDebounce, func() {
		select {
		case e.eventChan <- event{name: "refresh", reason: types.RefreshTextChanged}:
		default:
		}
	})
}

func (e *Engine) isEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

func (e *Engine) toggle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = !e.enabled
	return e.enabled
}

// refresh runs one full annotation cycle: sync editor state, fetch the
// baseline, rebuild hunks from scratch, project, and atomically replace the
// displayed plan. A failure to obtain fresh data keeps the previous,
// complete plan on screen; a failure to project clears instead, since a
// misplaced annotation is worse than none.
func (e *Engine) refresh(ctx context.Context, reason types.RefreshReason) {
	defer logger.Trace("engine.refresh")()

	if !e.isEnabled() {
		return
	}

	syncRes, err := e.buf.Sync()
	if err != nil {
		logger.Error("refresh(%s): sync failed: %v", reason, err)
		return
	}
	if e.buf.Path() == "" {
		return
	}
	if syncRes.BufferChanged {
		logger.Debug("buffer changed: %q -> %q", syncRes.OldPath, syncRes.NewPath)
	}

	relPath := e.source.RelPath(ctx, e.buf.Path())
	curLines := e.buf.Lines()

	e.mu.Lock()
	ref := e.ref
	e.mu.Unlock()

	refLines, existed, err := e.source.Lines(ctx, ref, relPath)
	if err != nil {
		// Reference unavailable: leave whatever complete plan is showing.
		logger.Warn("refresh(%s): reference %s:%s unavailable: %v", reason, ref, relPath, err)
		return
	}
	if !existed {
		// File absent at the reference: every current line is an addition.
		refLines = nil
	}

	hunks := e.buildHunks(ctx, refLines, curLines)

	plan, err := diff.Project(hunks, len(curLines))
	if errors.Is(err, diff.ErrStale) {
		// The buffer moved between sync and projection; recompute once
		// against a fresh snapshot.
		if _, serr := e.buf.Sync(); serr == nil {
			curLines = e.buf.Lines()
			hunks = e.buildHunks(ctx, refLines, curLines)
			plan, err = diff.Project(hunks, len(curLines))
		}
	}
	if err != nil {
		logger.Error("refresh(%s): projection failed: %v", reason, err)
		e.clearCurrent()
		return
	}

	if err := e.buf.ApplyPlan(plan, e.config.Styles); err != nil {
		logger.Error("refresh(%s): apply failed: %v", reason, err)
		return
	}

	e.mu.Lock()
	e.displayed[relPath] = plan
	e.mu.Unlock()

	logger.Info("refreshed %s against %s: %d marks, %d ghost blocks (%s)",
		relPath, ref, len(plan.Marks), len(plan.Ghosts), reason)
}

// buildHunks obtains the hunk sequence either by direct line comparison or
// by parsing the diff tool's unified output; both paths yield the same
// annotation model.
func (e *Engine) buildHunks(ctx context.Context, refLines, curLines []string) []diff.Hunk {
	if e.config.DiffMode == "git" {
		text, err := e.source.DiffText(ctx, refLines, curLines)
		if err == nil {
			return diff.Parse(text)
		}
		logger.Warn("diff tool failed, computing internally: %v", err)
	}
	return diff.Compute(refLines, curLines)
}

// clearCurrent removes annotations from the current buffer and forgets its
// displayed plan.
func (e *Engine) clearCurrent() {
	if err := e.buf.Clear(); err != nil {
		logger.Error("clear failed: %v", err)
		return
	}
	e.mu.Lock()
	delete(e.displayed, e.source.RelPath(context.Background(), e.buf.Path()))
	e.mu.Unlock()
}

// Displayed returns the currently displayed plan for a file, if any.
func (e *Engine) Displayed(path string) *diff.Plan {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.displayed[path]
}
