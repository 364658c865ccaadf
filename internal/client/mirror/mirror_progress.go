package mirror

import (
	"context"
	"io"
)

// ProgressEvent is pushed to a ProgressReporter after every chunk written.
type ProgressEvent struct {
	ID          string
	Kind        ActionKind
	Bytes       int64 // bytes in this chunk
	Transferred int64 // running total for this file
	Total       int64 // expected size of this file
	Index       int   // 1-based position of this file among the pass's transfers
	Count       int   // number of transfers in the pass
	Done        bool  // set on the final event of a successful transfer
}

// Fraction returns transferred/total in [0, 1].
func (e ProgressEvent) Fraction() float64 {
	if e.Total <= 0 {
		if e.Done {
			return 1
		}
		return 0
	}
	f := float64(e.Transferred) / float64(e.Total)
	return min(max(f, 0), 1)
}

func (e ProgressEvent) Percent() float64 {
	return e.Fraction() * 100
}

// ProgressReporter receives transfer progress. Report runs on the transfer
// goroutine and should return quickly.
type ProgressReporter interface {
	Report(ev ProgressEvent)
}

// ProgressReporterFunc adapts a function to ProgressReporter.
type ProgressReporterFunc func(ev ProgressEvent)

func (f ProgressReporterFunc) Report(ev ProgressEvent) {
	f(ev)
}

type nopReporter struct{}

func (nopReporter) Report(ProgressEvent) {}

// progressWriter forwards writes to the destination, emits a ProgressEvent per
// chunk and aborts once ctx is done.
type progressWriter struct {
	ctx      context.Context
	w        io.Writer
	reporter ProgressReporter
	event    ProgressEvent
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	if err := pw.ctx.Err(); err != nil {
		return 0, err
	}

	n, err := pw.w.Write(p)
	if n > 0 {
		ev := pw.event
		ev.Bytes = int64(n)
		ev.Transferred += int64(n)
		pw.event.Transferred = ev.Transferred
		pw.reporter.Report(ev)
	}
	return n, err
}

func (pw *progressWriter) done() {
	ev := pw.event
	ev.Bytes = 0
	ev.Done = true
	pw.reporter.Report(ev)
}
