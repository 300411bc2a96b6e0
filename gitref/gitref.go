package gitref

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"unified/diff"
	"unified/logger"
)

// Source provides file content as of a git reference, backed by a
// compressed per-commit cache.
type Source struct {
	workDir string
	cache   *Cache
}

func NewSource(workDir string) *Source {
	return &Source{
		workDir: workDir,
		cache:   NewCache(),
	}
}

// Lines returns the file's line sequence as of ref. The second return is
// false when the file did not exist at that reference, which callers treat
// as "every current line is added".
func (s *Source) Lines(ctx context.Context, ref, path string) ([]string, bool, error) {
	defer logger.Trace("gitref.Lines")()

	commit, err := s.ResolveRef(ctx, ref)
	if err != nil {
		return nil, false, err
	}

	key := commit + ":" + path
	if lines, ok := s.cache.Get(key); ok {
		return lines, true, nil
	}

	out, err := s.runGit(ctx, "show", key)
	if err != nil {
		if isMissingAtRef(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("git show %s: %w", key, err)
	}

	lines := diff.SplitLines(out)
	s.cache.Put(key, lines)
	return lines, true, nil
}

// ResolveRef resolves a commit-ish to a full commit hash.
func (s *Source) ResolveRef(ctx context.Context, ref string) (string, error) {
	out, err := s.runGit(ctx, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", ref, err)
	}
	return strings.TrimSpace(out), nil
}

// GitDir returns the repository's .git directory for the watcher.
func (s *Source) GitDir(ctx context.Context) (string, error) {
	out, err := s.runGit(ctx, "rev-parse", "--git-dir")
	if err != nil {
		return "", err
	}
	dir := strings.TrimSpace(out)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(s.workDir, dir)
	}
	return dir, nil
}

// RelPath converts an absolute buffer path to the repo-relative path git
// expects. Paths outside the repository are returned unchanged.
func (s *Source) RelPath(ctx context.Context, absolute string) string {
	root, err := s.runGit(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return absolute
	}
	return makeRelative(absolute, strings.TrimSpace(root))
}

// Invalidate drops all cached snapshots. Called when the watcher reports
// the reference may have moved.
func (s *Source) Invalidate() {
	s.cache.Clear()
}

// DiffText produces standard unified-diff text between two line sequences
// by handing them to git. Exit status 1 means "differences found" and is
// not an error. The core accepts this text or the raw line sequences
// interchangeably.
func (s *Source) DiffText(ctx context.Context, oldLines, newLines []string) (string, error) {
	oldFile, err := writeTempLines("unified-old-*", oldLines)
	if err != nil {
		return "", err
	}
	defer os.Remove(oldFile)

	newFile, err := writeTempLines("unified-new-*", newLines)
	if err != nil {
		return "", err
	}
	defer os.Remove(newFile)

	cmd := exec.CommandContext(ctx, "git", "diff", "--no-index", "--unified=0", "--", oldFile, newFile)
	cmd.Dir = s.workDir
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && ee.ExitCode() == 1 {
			return string(out), nil
		}
		return "", fmt.Errorf("git diff --no-index: %w", err)
	}
	return string(out), nil
}

// runGit executes a git command in the workspace and returns its stdout.
func (s *Source) runGit(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.workDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		logger.Debug("gitref: git %s failed: %v: %s", args[0], err, strings.TrimSpace(stderr.String()))
		return "", &gitError{args: args, err: err, stderr: stderr.String()}
	}
	return string(out), nil
}

type gitError struct {
	args   []string
	err    error
	stderr string
}

func (e *gitError) Error() string {
	return fmt.Sprintf("git %s: %v: %s", strings.Join(e.args, " "), e.err, strings.TrimSpace(e.stderr))
}

func (e *gitError) Unwrap() error { return e.err }

// isMissingAtRef detects git's "path not in that revision" failures, as
// opposed to a broken repo or a bad ref.
func isMissingAtRef(err error) bool {
	ge, ok := err.(*gitError)
	if !ok {
		return false
	}
	msg := ge.stderr
	return strings.Contains(msg, "does not exist in") ||
		strings.Contains(msg, "exists on disk, but not in")
}

func makeRelative(absolute, root string) string {
	absolute = filepath.Clean(absolute)
	root = filepath.Clean(root)
	if rel, found := strings.CutPrefix(absolute, root); found {
		return strings.TrimPrefix(rel, string(filepath.Separator))
	}
	return absolute
}

func writeTempLines(pattern string, lines []string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(diff.JoinLines(lines)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
