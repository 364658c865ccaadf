package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/dustin/go-humanize"
	"github.com/openmined/ftpmirror/internal/client/mirror"
)

// ProgressPrinter renders transfer progress as `[i/n] path: xx.xx% complete`.
// On a terminal the line is redrawn in place with a bar; otherwise only the
// completion line of each file is printed.
type ProgressPrinter struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	bar         progress.Model
	last        string
}

func NewProgressPrinter(out io.Writer, interactive bool) *ProgressPrinter {
	return &ProgressPrinter{
		out:         out,
		interactive: interactive,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(30), progress.WithoutPercentage()),
	}
}

func (p *ProgressPrinter) Report(ev mirror.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := FormatProgress(ev)

	if !p.interactive {
		if ev.Done {
			fmt.Fprintf(p.out, "%s (%s)\n", line, humanize.IBytes(uint64(max(ev.Transferred, 0))))
		}
		return
	}

	// chunks are small, only redraw when the visible text changes
	if line == p.last && !ev.Done {
		return
	}
	p.last = line

	fmt.Fprintf(p.out, "\r\033[K%s %s", p.bar.ViewAs(ev.Fraction()), line)
	if ev.Done {
		fmt.Fprintln(p.out)
		p.last = ""
	}
}

// FormatProgress renders the progress line for ev.
func FormatProgress(ev mirror.ProgressEvent) string {
	return fmt.Sprintf("[%d/%d] %s: %.2f%% complete", ev.Index, ev.Count, ev.ID, ev.Percent())
}
