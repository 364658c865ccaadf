package mirror

import (
	"context"
	"errors"
	"io"

	mapset "github.com/deckarep/golang-set/v2"
)

var (
	ErrPassAlreadyRunning    = errors.New("mirror pass already running")
	ErrRemoteDirInaccessible = errors.New("remote directory inaccessible")
	ErrDeclined              = errors.New("mirror declined by operator")
	ErrInsufficientSpace     = errors.New("insufficient local disk space")
	ErrSizeMismatch          = errors.New("transferred size does not match remote size")
	ErrInvalidID             = errors.New("file id escapes the local directory")
	ErrRemoteFileGone        = errors.New("remote file no longer exists")
)

// RemoteEntry is one file reported by the remote lister.
type RemoteEntry struct {
	ID   string
	Size int64
}

// RemoteSnapshot maps file id to remote size for a single pass.
type RemoteSnapshot map[string]int64

func NewRemoteSnapshot(entries []RemoteEntry) RemoteSnapshot {
	snap := make(RemoteSnapshot, len(entries))
	for _, e := range entries {
		snap[e.ID] = e.Size
	}
	return snap
}

// LocalSnapshot is the set of file ids present on disk for a single pass.
type LocalSnapshot struct {
	ids mapset.Set[string]
}

func NewLocalSnapshot(ids ...string) LocalSnapshot {
	return LocalSnapshot{ids: mapset.NewSet(ids...)}
}

func (l LocalSnapshot) Has(id string) bool {
	return l.ids != nil && l.ids.Contains(id)
}

func (l LocalSnapshot) Len() int {
	if l.ids == nil {
		return 0
	}
	return l.ids.Cardinality()
}

// RemoteLister lists every file below the directory a session is bound to.
// It must fail with ErrRemoteDirInaccessible rather than return a partial listing.
type RemoteLister interface {
	List(ctx context.Context) ([]RemoteEntry, error)
}

// Fetcher opens the remote byte stream for a file id. The caller closes it
// before issuing any other request on the same session.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (io.ReadCloser, error)
}

// Session is one live remote connection, owned by a single pass.
type Session interface {
	RemoteLister
	Fetcher
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// LocalLister lists the file ids present below a local directory.
type LocalLister interface {
	List(ctx context.Context, localDir string) (LocalSnapshot, error)
}

// Previewer shows the planned actions to the operator and decides whether the
// pass proceeds. When pause is false it must not block on input.
type Previewer interface {
	Preview(ctx context.Context, actions []Action, pause bool) (bool, error)
}
