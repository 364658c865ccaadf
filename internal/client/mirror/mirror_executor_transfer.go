package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/openmined/ftpmirror/internal/utils"
)

func (e *Executor) handleTransfer(ctx context.Context, a Action, index, count int, result *ExecuteResult) {
	e.log.Info("mirror", "op", a.Kind, "status", "Started", "path", a.ID, "size", humanize.IBytes(uint64(max(a.Size, 0))), "file", fmt.Sprintf("%d/%d", index, count))

	if err := e.transfer(ctx, a, index, count); err != nil {
		// record left untouched so the next pass retries this file
		if errors.Is(err, ErrRemoteFileGone) {
			e.log.Warn("mirror", "op", a.Kind, "status", "Failed", "path", a.ID, "error", err)
		} else {
			e.log.Error("mirror", "op", a.Kind, "status", "Failed", "path", a.ID, "error", err)
		}
		result.fail(a, err)
		return
	}

	switch a.Kind {
	case ActionDownload:
		result.Downloaded++
	case ActionUpdate:
		result.Updated++
	}
	e.log.Info("mirror", "op", a.Kind, "status", "Completed", "path", a.ID)
}

// transfer streams one file into a part file next to its destination, renames
// it into place and then marks the record Downloaded. Any failure leaves the
// previous local copy and the record as they were.
func (e *Executor) transfer(ctx context.Context, a Action, index, count int) (err error) {
	localPath, err := e.LocalPath(a.ID)
	if err != nil {
		return err
	}

	if err := utils.EnsureParent(localPath); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	if err := e.checkFreeSpace(ctx, localPath, a.Size); err != nil {
		return err
	}

	partPath := localPath + partSuffix
	if err := os.Remove(partPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale part file: %w", err)
	}

	file, err := os.OpenFile(partPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("open part file: %w", err)
	}
	defer func() {
		if err != nil {
			file.Close()
			os.Remove(partPath)
		}
	}()

	body, err := e.fetcher.Fetch(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	pw := &progressWriter{
		ctx:      ctx,
		w:        file,
		reporter: e.reporter,
		event:    ProgressEvent{ID: a.ID, Kind: a.Kind, Total: a.Size, Index: index, Count: count},
	}
	written, copyErr := io.Copy(pw, body)
	closeErr := body.Close()
	if copyErr != nil {
		return fmt.Errorf("copy: %w", copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close remote stream: %w", closeErr)
	}
	if written != a.Size {
		return fmt.Errorf("%w: got %d, want %d", ErrSizeMismatch, written, a.Size)
	}

	if err = file.Sync(); err != nil {
		return fmt.Errorf("sync part file: %w", err)
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf("close part file: %w", err)
	}
	if err = os.Rename(partPath, localPath); err != nil {
		return fmt.Errorf("rename part file: %w", err)
	}

	// the file is in place; a failed write here only costs a re-download next pass
	if err := e.store.Upsert(NewFileRecord(a.ID, StatusDownloaded, a.Size)); err != nil {
		return fmt.Errorf("persist record: %w", err)
	}

	pw.done()
	return nil
}

func (e *Executor) checkFreeSpace(ctx context.Context, localPath string, size int64) error {
	if e.freeSpace == nil || size <= 0 {
		return nil
	}

	free, err := e.freeSpace(ctx, e.localDir)
	if err != nil {
		e.log.Debug("mirror", "op", "FreeSpace", "path", localPath, "error", err)
		return nil
	}
	if free < uint64(size) {
		return fmt.Errorf("%w: need %s, have %s", ErrInsufficientSpace, humanize.IBytes(uint64(size)), humanize.IBytes(free))
	}
	return nil
}
