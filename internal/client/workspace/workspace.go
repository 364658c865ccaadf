package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/gofrs/flock"
	"github.com/openmined/ftpmirror/internal/utils"
)

const lockSuffix = ".lock"

var (
	ErrWorkspaceLocked = errors.New("workspace locked by another process")
)

// Workspace is the local mirror directory together with the state file
// that tracks it. Only one process may own a state file at a time.
type Workspace struct {
	LocalDir  string
	StatePath string

	flock *flock.Flock
}

func NewWorkspace(localDir, statePath string) (*Workspace, error) {
	root, err := utils.ResolvePath(localDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", localDir, err)
	}
	state, err := utils.ResolvePath(statePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", statePath, err)
	}

	return &Workspace{
		LocalDir:  root,
		StatePath: state,
		flock:     flock.New(state + lockSuffix),
	}, nil
}

func (w *Workspace) LockPath() string {
	return w.flock.Path()
}

func (w *Workspace) Lock() error {
	// the lock file lives next to the state file so two mirrors of different dirs can run side by side
	if err := utils.EnsureParent(w.StatePath); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", w.StatePath, err)
	}

	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock workspace: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}

	return nil
}

func (w *Workspace) Unlock() error {
	// if this process hasn't locked the workspace, then don't delete the lock file
	if !w.flock.Locked() {
		return nil
	}

	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock workspace: %w", err)
	}

	return os.Remove(w.flock.Path())
}

// Setup takes the lock and creates the local dir.
func (w *Workspace) Setup() error {
	if err := w.Lock(); err != nil {
		return err
	}

	if err := utils.EnsureDir(w.LocalDir); err != nil {
		w.Unlock()
		return fmt.Errorf("failed to create directory %s: %w", w.LocalDir, err)
	}

	slog.Info("workspace", "localDir", w.LocalDir, "state", w.StatePath)
	return nil
}
