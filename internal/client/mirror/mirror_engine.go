package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultInterval = 2 * time.Minute

type EngineConfig struct {
	LocalDir string
	Interval time.Duration
	// Preview shows the plan and waits for confirmation before executing.
	Preview bool
	Filter  *Filter
}

// PassResult is the outcome of one full pass.
type PassResult struct {
	ID      string
	Plan    *Plan
	Execute *ExecuteResult
}

func (r *PassResult) Failed() int {
	if r.Execute == nil {
		return 0
	}
	return len(r.Execute.Failed)
}

type Engine struct {
	cfg       EngineConfig
	dialer    Dialer
	store     Store
	local     LocalLister
	previewer Previewer
	execOpts  []ExecutorOption
	muPass    sync.Mutex
}

type EngineOption func(*Engine)

func WithPreviewer(p Previewer) EngineOption {
	return func(e *Engine) {
		e.previewer = p
	}
}

func WithLocalLister(l LocalLister) EngineOption {
	return func(e *Engine) {
		e.local = l
	}
}

func WithExecutorOptions(opts ...ExecutorOption) EngineOption {
	return func(e *Engine) {
		e.execOpts = append(e.execOpts, opts...)
	}
}

func NewEngine(cfg EngineConfig, dialer Dialer, store Store, opts ...EngineOption) (*Engine, error) {
	if dialer == nil {
		return nil, errors.New("engine: dialer is required")
	}
	if store == nil {
		return nil, errors.New("engine: store is required")
	}
	if cfg.LocalDir == "" {
		return nil, errors.New("engine: local dir is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Filter == nil {
		filter, err := NewFilter(nil, nil)
		if err != nil {
			return nil, err
		}
		cfg.Filter = filter
	}

	e := &Engine{
		cfg:    cfg,
		dialer: dialer,
		store:  store,
		local:  NewFSLocalLister(cfg.Filter),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Start runs passes until ctx is done. In preview mode it runs exactly one
// pass. A failing pass is logged and retried after the interval; a declined
// preview ends the loop.
func (e *Engine) Start(ctx context.Context) error {
	slog.Info("mirror start", "localDir", e.cfg.LocalDir, "interval", e.cfg.Interval, "preview", e.cfg.Preview)

	_, err := e.RunPass(ctx)
	if e.cfg.Preview || errors.Is(err, ErrDeclined) {
		return err
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("mirror pass failed", "error", err)
	}

	// timer and not a ticker so a slow pass never queues up another one
	timer := time.NewTimer(e.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("mirror stop")
			return nil
		case <-timer.C:
			_, err := e.RunPass(ctx)
			if errors.Is(err, ErrDeclined) {
				return err
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("mirror pass failed", "error", err)
			}
			timer.Reset(e.cfg.Interval)
		}
	}
}

// RunPass performs one reconcile and execute cycle over a fresh session.
func (e *Engine) RunPass(ctx context.Context) (*PassResult, error) {
	if !e.muPass.TryLock() {
		return nil, ErrPassAlreadyRunning
	}
	defer e.muPass.Unlock()

	result := &PassResult{ID: uuid.NewString()}
	log := slog.With("pass", result.ID)
	tStart := time.Now()

	session, err := e.dialer.Dial(ctx)
	if err != nil {
		return result, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("mirror", "op", "Close", "error", err)
		}
	}()
	tDial := time.Since(tStart)

	var (
		entries []RemoteEntry
		local   LocalSnapshot
		tRemote time.Duration
		tLocal  time.Duration
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		t := time.Now()
		defer func() { tRemote = time.Since(t) }()
		var err error
		if entries, err = session.List(egCtx); err != nil {
			return fmt.Errorf("list remote: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		t := time.Now()
		defer func() { tLocal = time.Since(t) }()
		var err error
		if local, err = e.local.List(egCtx, e.cfg.LocalDir); err != nil {
			return fmt.Errorf("list local: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return result, err
	}

	tReconcileStart := time.Now()
	plan, err := Reconcile(e.store, NewRemoteSnapshot(entries), local, e.cfg.Filter)
	if err != nil {
		return result, err
	}
	result.Plan = plan
	tReconcile := time.Since(tReconcileStart)

	if plan.HasActions() {
		log.Debug("reconcile decisions", "actions", plan.String())
	}

	if e.previewer != nil && plan.HasActions() {
		proceed, err := e.previewer.Preview(ctx, plan.Actions, e.cfg.Preview)
		if err != nil {
			return result, fmt.Errorf("preview: %w", err)
		}
		if !proceed {
			log.Info("mirror declined", "actions", len(plan.Actions))
			return result, ErrDeclined
		}
	}

	opts := append([]ExecutorOption{WithLogger(log)}, e.execOpts...)
	executor := NewExecutor(e.store, session, e.cfg.LocalDir, opts...)
	tExecStart := time.Now()
	execResult, execErr := executor.Execute(ctx, plan.Actions)
	result.Execute = execResult
	tExecute := time.Since(tExecStart)

	log.Info("mirror pass",
		"remote", len(entries),
		"local", local.Len(),
		"downloads", execResult.Downloaded,
		"updates", execResult.Updated,
		"deletes", execResult.Deleted,
		"failed", len(execResult.Failed),
		"skipped", execResult.Skipped,
		"unchanged", plan.Unchanged,
		"ignored", plan.Ignored,
		"tsDial", tDial,
		"tsRemoteState", tRemote,
		"tsLocalState", tLocal,
		"tsReconcile", tReconcile,
		"tsExecute", tExecute,
		"tsTotal", time.Since(tStart),
	)

	return result, execErr
}
