package mirror

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

func (e *Executor) handleLocalDelete(a Action, result *ExecuteResult) {
	localPath, err := e.LocalPath(a.ID)
	if err != nil {
		e.log.Error("mirror", "op", ActionDelete, "path", a.ID, "error", err)
		result.fail(a, err)
		return
	}

	err = os.Remove(localPath)
	switch {
	case err == nil:
		e.log.Info("mirror", "op", ActionDelete, "path", a.ID)
	case errors.Is(err, fs.ErrNotExist):
		e.log.Debug("mirror", "op", ActionDelete, "path", a.ID, "message", "file was already deleted")
	default:
		// permission denied, file in use; the record stays Deleted and the next pass retries
		err = fmt.Errorf("delete local file: %w", err)
		e.log.Error("mirror", "op", ActionDelete, "path", localPath, "error", err)
		result.fail(a, err)
		return
	}

	if err := e.store.Delete(a.ID); err != nil {
		e.log.Error("mirror", "op", ActionDelete, "path", a.ID, "error", err)
		result.fail(a, err)
		return
	}
	result.Deleted++
}

// cleanupParents removes directories left empty by deletions, stopping at the local root.
func (e *Executor) cleanupParents(deletes []Action) {
	parents := make(map[string]struct{})
	for _, a := range deletes {
		if p, err := e.LocalPath(a.ID); err == nil {
			parents[filepath.Dir(p)] = struct{}{}
		}
	}
	for parent := range parents {
		e.cleanupEmptyParentDirs(parent)
	}
}

func (e *Executor) cleanupEmptyParentDirs(dir string) {
	root := filepath.Clean(e.localDir)
	current := filepath.Clean(dir)

	for current != root && len(current) > len(root) {
		entries, err := os.ReadDir(current)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				e.log.Warn("mirror", "op", "Cleanup", "path", current, "error", err)
			}
			return
		}

		remaining := 0
		for _, entry := range entries {
			if entry.Name() == ".DS_Store" || entry.Name() == "Thumbs.db" {
				_ = os.RemoveAll(filepath.Join(current, entry.Name()))
			} else {
				remaining++
			}
		}
		if remaining > 0 {
			return
		}

		// windows may keep a handle open briefly after the last file goes away
		var rmErr error
		for i := 0; i < 3; i++ {
			if rmErr = os.Remove(current); rmErr == nil {
				break
			}
			time.Sleep(50 * time.Millisecond)
		}
		if rmErr != nil {
			e.log.Warn("mirror", "op", "Cleanup", "path", current, "error", rmErr)
			return
		}
		e.log.Debug("mirror", "op", "Cleanup", "path", current, "reason", "empty parent dir")
		current = filepath.Dir(current)
	}
}
