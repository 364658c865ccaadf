package console

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/openmined/ftpmirror/internal/client/mirror"
)

// Previewer prints the planned actions as tables and, when asked to pause,
// waits for the operator to confirm.
type Previewer struct {
	out       io.Writer
	in        io.Reader
	remoteDir string
	localDir  string
	confirm   func(ctx context.Context, in io.Reader, out io.Writer, question string) (bool, error)
}

func NewPreviewer(in io.Reader, out io.Writer, remoteDir, localDir string) *Previewer {
	return &Previewer{
		out:       out,
		in:        in,
		remoteDir: remoteDir,
		localDir:  localDir,
		confirm:   Confirm,
	}
}

func (p *Previewer) Preview(ctx context.Context, actions []mirror.Action, pause bool) (bool, error) {
	var transfers, deletes []mirror.Action
	for _, a := range actions {
		if a.IsTransfer() {
			transfers = append(transfers, a)
		} else {
			deletes = append(deletes, a)
		}
	}

	if len(transfers) > 0 {
		fmt.Fprintln(p.out, bold.Render("Files to be downloaded/updated:"))
		fmt.Fprintln(p.out, p.renderTable(transfers))
	} else if pause {
		fmt.Fprintln(p.out, gray.Render("No new or updated files to download."))
	}

	if len(deletes) > 0 {
		fmt.Fprintln(p.out, bold.Render("Files to be deleted:"))
		fmt.Fprintln(p.out, p.renderTable(deletes))
	} else if pause {
		fmt.Fprintln(p.out, gray.Render("No files to be deleted."))
	}

	if !pause {
		return true, nil
	}
	return p.confirm(ctx, p.in, p.out, "Do you want to commit?[Y/n] ")
}

func (p *Previewer) renderTable(actions []mirror.Action) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(gray).
		Headers("Action", "Remote Path", "Local Path", "Size").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cellStyle.Bold(true)
			}
			if col == 0 {
				return cellStyle.Inherit(actionStyle(actions[row].Kind))
			}
			return cellStyle
		})

	for _, a := range actions {
		t.Row(a.Kind.String(), p.remotePath(a.ID), p.localPath(a.ID), humanize.IBytes(uint64(max(a.Size, 0))))
	}
	return t.String()
}

func (p *Previewer) remotePath(id string) string {
	return path.Join(p.remoteDir, id)
}

func (p *Previewer) localPath(id string) string {
	return filepath.Join(p.localDir, filepath.FromSlash(id))
}

func actionStyle(kind mirror.ActionKind) lipgloss.Style {
	switch kind {
	case mirror.ActionDownload:
		return green
	case mirror.ActionUpdate:
		return yellow
	case mirror.ActionDelete:
		return red
	}
	return lipgloss.NewStyle()
}
