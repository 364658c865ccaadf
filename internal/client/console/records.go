package console

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/openmined/ftpmirror/internal/client/mirror"
)

// RenderRecords prints the persisted records followed by a per status count.
func RenderRecords(w io.Writer, records []*mirror.FileRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, gray.Render("No files tracked yet."))
		return
	}

	counts := make(map[mirror.FileStatus]int)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(gray).
		Headers("Path", "Status", "Remote Size").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cellStyle.Bold(true)
			}
			if col == 1 {
				return cellStyle.Inherit(statusStyle(records[row].Status))
			}
			return cellStyle
		})

	for _, r := range records {
		counts[r.Status]++
		size := "-"
		if r.RemoteSize != nil {
			size = humanize.IBytes(uint64(max(*r.RemoteSize, 0)))
		}
		t.Row(r.ID, r.Status.String(), size)
	}

	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "%d files: %d downloaded, %d pending, %d updated, %d deleted\n",
		len(records),
		counts[mirror.StatusDownloaded],
		counts[mirror.StatusNotDownloaded],
		counts[mirror.StatusUpdated],
		counts[mirror.StatusDeleted],
	)
}

func statusStyle(status mirror.FileStatus) lipgloss.Style {
	switch status {
	case mirror.StatusDownloaded:
		return green
	case mirror.StatusNotDownloaded:
		return cyan
	case mirror.StatusUpdated:
		return yellow
	case mirror.StatusDeleted:
		return red
	}
	return lipgloss.NewStyle()
}
