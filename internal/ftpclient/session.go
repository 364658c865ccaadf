package ftpclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/openmined/ftpmirror/internal/client/mirror"
)

// Session is one logged-in control connection. Requests are serial: a Fetch
// stream must be closed before the next List or Fetch.
type Session struct {
	conn conn
	root string
}

type dirItem struct {
	path string // absolute remote path
	id   string // path relative to root
}

// List walks the tree below the session root depth first and returns every
// regular file with its slash separated id. Links are skipped. A listing
// error anywhere fails the whole listing.
func (s *Session) List(ctx context.Context) ([]mirror.RemoteEntry, error) {
	var files []mirror.RemoteEntry
	stack := []dirItem{{path: s.root}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := s.conn.List(dir.path)
		if err != nil {
			err = &RemoteError{Op: "list", Path: dir.path, Err: err}
			if dir.id == "" {
				return nil, fmt.Errorf("%w: %w", mirror.ErrRemoteDirInaccessible, err)
			}
			return nil, err
		}

		for _, entry := range entries {
			if entry.Name == "." || entry.Name == ".." || entry.Name == "" {
				continue
			}
			// some servers return names with the listed path in front
			name := path.Base(strings.ReplaceAll(entry.Name, "\\", "/"))
			id := joinID(dir.id, name)

			switch entry.Type {
			case ftp.EntryTypeFolder:
				stack = append(stack, dirItem{path: path.Join(dir.path, name), id: id})
			case ftp.EntryTypeFile:
				files = append(files, mirror.RemoteEntry{ID: id, Size: int64(entry.Size)})
			default:
				slog.Debug("ftp list skip", "path", id, "type", entry.Type, "target", entry.Target)
			}
		}
	}

	return files, nil
}

// Fetch opens a RETR stream for id. Canceling ctx aborts the stream.
func (s *Session) Fetch(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	remotePath := path.Join(s.root, id)
	resp, err := s.conn.Retr(remotePath)
	if err != nil {
		err = &RemoteError{Op: "retr", Path: remotePath, Err: err}
		if IsNotFound(err) {
			// removed after the listing was taken
			return nil, fmt.Errorf("%w: %w", mirror.ErrRemoteFileGone, err)
		}
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		resp.SetDeadline(time.Now())
	})
	return &fetchStream{stream: resp, stop: stop}, nil
}

func (s *Session) Close() error {
	if err := s.conn.Quit(); err != nil {
		return &RemoteError{Op: "quit", Path: s.root, Err: err}
	}
	return nil
}

type fetchStream struct {
	stream
	stop func() bool
}

func (f *fetchStream) Close() error {
	f.stop()
	return f.stream.Close()
}

func joinID(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
