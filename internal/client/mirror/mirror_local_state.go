package mirror

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charlievieth/fastwalk"
	mapset "github.com/deckarep/golang-set/v2"
)

// FSLocalLister scans a local directory tree with fastwalk.
type FSLocalLister struct {
	filter *Filter
}

func NewFSLocalLister(filter *Filter) *FSLocalLister {
	return &FSLocalLister{filter: filter}
}

// List returns the ids of all regular files below localDir, including symlinks
// that resolve to regular files. A missing localDir yields an empty snapshot.
func (l *FSLocalLister) List(ctx context.Context, localDir string) (LocalSnapshot, error) {
	ids := mapset.NewSet[string]()

	info, err := os.Stat(localDir)
	if errors.Is(err, fs.ErrNotExist) {
		return LocalSnapshot{ids: ids}, nil
	} else if err != nil {
		return LocalSnapshot{}, fmt.Errorf("stat local dir: %w", err)
	} else if !info.IsDir() {
		return LocalSnapshot{}, fmt.Errorf("local dir %s is not a directory", localDir)
	}

	conf := fastwalk.Config{
		Follow: false,
	}

	// the callback runs on several goroutines; mapset's default set is thread safe
	err = fastwalk.Walk(&conf, localDir, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			if path == localDir {
				return walkErr
			}
			slog.Warn("local scan", "path", path, "error", walkErr)
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			// a link to a regular file counts as a local copy; links to dirs are not descended
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(localDir, path)
		if err != nil {
			return fmt.Errorf("rel path: %w", err)
		}
		id := filepath.ToSlash(relPath)

		if l.filter.Allows(id) {
			ids.Add(id)
		}
		return nil
	})
	if err != nil {
		return LocalSnapshot{}, fmt.Errorf("local scan failed: %w", err)
	}

	return LocalSnapshot{ids: ids}, nil
}
