package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
)

// ExecuteResult summarizes one executor run.
type ExecuteResult struct {
	Downloaded int
	Updated    int
	Deleted    int
	Failed     []FailedAction
	Skipped    int // actions not attempted because the context was done
}

type FailedAction struct {
	Action Action
	Err    error
}

func (r *ExecuteResult) Completed() int {
	return r.Downloaded + r.Updated + r.Deleted
}

func (r *ExecuteResult) fail(a Action, err error) {
	r.Failed = append(r.Failed, FailedAction{Action: a, Err: err})
}

type ExecutorOption func(*Executor)

func WithProgressReporter(r ProgressReporter) ExecutorOption {
	return func(e *Executor) {
		if r != nil {
			e.reporter = r
		}
	}
}

// WithFreeSpaceFunc overrides how free space is measured. A nil func disables the check.
func WithFreeSpaceFunc(fn FreeSpaceFunc) ExecutorOption {
	return func(e *Executor) {
		e.freeSpace = fn
	}
}

func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// Executor applies planned actions against the local directory and one
// remote session, persisting each completed action before starting the next.
type Executor struct {
	store     Store
	fetcher   Fetcher
	localDir  string
	reporter  ProgressReporter
	freeSpace FreeSpaceFunc
	log       *slog.Logger
}

func NewExecutor(store Store, fetcher Fetcher, localDir string, opts ...ExecutorOption) *Executor {
	e := &Executor{
		store:     store,
		fetcher:   fetcher,
		localDir:  localDir,
		reporter:  nopReporter{},
		freeSpace: diskFreeSpace,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs every delete and then every transfer. Per-file failures are
// logged and recorded in the result; they never stop the batch. The only
// error returned is the context's, observed between actions.
func (e *Executor) Execute(ctx context.Context, actions []Action) (*ExecuteResult, error) {
	result := &ExecuteResult{}
	deletes, transfers := splitActions(actions)

	for i, a := range deletes {
		if err := ctx.Err(); err != nil {
			result.Skipped = len(deletes) - i + len(transfers)
			return result, err
		}
		e.handleLocalDelete(a, result)
	}
	e.cleanupParents(deletes)

	for i, a := range transfers {
		if err := ctx.Err(); err != nil {
			result.Skipped = len(transfers) - i
			return result, err
		}
		e.handleTransfer(ctx, a, i+1, len(transfers), result)
	}

	return result, nil
}

// LocalPath maps a file id to its path below the local directory.
func (e *Executor) LocalPath(id string) (string, error) {
	return LocalPath(e.localDir, id)
}

// LocalPath maps a file id to its path below localDir, rejecting ids that
// would escape it.
func LocalPath(localDir, id string) (string, error) {
	rel := filepath.FromSlash(id)
	if id == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(localDir, rel), nil
}
