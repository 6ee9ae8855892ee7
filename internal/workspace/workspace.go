// Package workspace manages the per-conversion scratch directories that hold
// extracted archive contents and renderer temp files.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Prefix starts every workspace directory name.
const Prefix = "zip2pdf-"

// ErrBaseDir is returned when the base directory is unusable.
var ErrBaseDir = errors.New("workspace base directory unavailable")

// Manager creates and sweeps workspaces under a base directory.
type Manager struct {
	base   string
	logger *slog.Logger
}

// NewManager returns a Manager rooted at base. An empty base uses os.TempDir.
func NewManager(base string, logger *slog.Logger) *Manager {
	if base == "" {
		base = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{base: base, logger: logger}
}

// Base returns the directory workspaces are created in.
func (m *Manager) Base() string { return m.base }

// Workspace is a private directory owned by exactly one conversion.
type Workspace struct {
	ID   string
	Root string

	logger   *slog.Logger
	once     sync.Once
	released chan struct{}
	remove   func(string) error
}

// Acquire creates a fresh workspace. os.Mkdir fails rather than reusing an
// existing directory, so two conversions never share one.
func (m *Manager) Acquire() (*Workspace, error) {
	id := uuid.NewString()
	root := filepath.Join(m.base, Prefix+id)

	if err := os.Mkdir(root, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBaseDir, err)
	}

	m.logger.Debug("workspace acquired", slog.String("workspace", id))
	return &Workspace{
		ID:       id,
		Root:     root,
		logger:   m.logger,
		released: make(chan struct{}),
		remove:   os.RemoveAll,
	}, nil
}

// Release removes the workspace and everything in it. It runs at most once;
// later calls are no-ops. Removal failures are logged, never returned.
func (w *Workspace) Release() {
	w.once.Do(func() {
		defer close(w.released)
		if err := w.remove(w.Root); err != nil {
			w.logger.Warn("workspace cleanup failed",
				slog.String("workspace", w.ID),
				slog.String("error", err.Error()))
			return
		}
		w.logger.Debug("workspace released", slog.String("workspace", w.ID))
	})
}

// Released is closed once Release has run.
func (w *Workspace) Released() <-chan struct{} { return w.released }

// Path joins rel onto the workspace root.
func (w *Workspace) Path(rel string) string {
	return filepath.Join(w.Root, filepath.FromSlash(rel))
}

// Sweep removes workspaces under the base directory whose modification time
// is older than olderThan. It returns the number of directories removed.
// Workspaces left behind by a crashed process are reclaimed this way.
func (m *Manager) Sweep(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(m.base)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBaseDir, err)
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), Prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		dir := filepath.Join(m.base, e.Name())
		if err := os.RemoveAll(dir); err != nil {
			m.logger.Warn("stale workspace not removed",
				slog.String("dir", dir),
				slog.String("error", err.Error()))
			continue
		}
		removed++
	}
	if removed > 0 {
		m.logger.Info("stale workspaces swept", slog.Int("count", removed))
	}
	return removed, nil
}
