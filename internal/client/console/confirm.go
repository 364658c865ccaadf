package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// Confirm asks a yes/no question. Only "y" or "Y" proceeds; any other answer,
// including an empty one, declines. On a terminal it reads single key
// presses, otherwise it reads one line from in.
func Confirm(ctx context.Context, in io.Reader, out io.Writer, question string) (bool, error) {
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return confirmTUI(ctx, in, out, question)
	}
	return confirmLine(ctx, in, out, question)
}

func confirmLine(ctx context.Context, in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprint(out, question)

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		ch <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(out)
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && !errors.Is(a.err, io.EOF) {
			return false, fmt.Errorf("read answer: %w", a.err)
		}
		if errors.Is(a.err, io.EOF) && a.line == "" {
			// no operator attached
			return false, nil
		}
		return parseAnswer(a.line), nil
	}
}

func parseAnswer(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

type confirmModel struct {
	question string
	answer   bool
	done     bool
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "y", "Y":
		m.answer, m.done = true, true
		return m, tea.Quit
	case "n", "N", "enter", "esc", "ctrl+c", "q":
		m.answer, m.done = false, true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		reply := red.Render("no")
		if m.answer {
			reply = green.Render("yes")
		}
		return m.question + reply + "\n"
	}
	return m.question + gray.Render("(y/n)")
}

func confirmTUI(ctx context.Context, in io.Reader, out io.Writer, question string) (bool, error) {
	model := confirmModel{question: cyan.Render(question)}
	final, err := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	).Run()
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("confirm prompt: %w", err)
	}
	return final.(confirmModel).answer, nil
}
