package themepipe

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/term"
	"github.com/muesli/reflow/wordwrap"
	"github.com/samber/lo"

	"github.com/yaklabco/themepipe/pkg/task"
	"github.com/yaklabco/themepipe/pkg/ui"
)

const (
	termWidthFloor    = 20
	fallbackTermWidth = 80
)

type listRow struct {
	name      string
	runs      string
	synopsis  string
	isDefault bool
	isWatch   bool
}

// List writes the table shown by `themepipe --list`. Filters narrow the rows
// to entries whose name, members or synopsis contain every filter.
func (g *Graph) List(out io.Writer, filters []string) error {
	rows := g.listRows()
	rows = filterRows(rows, filters)

	cs := ui.GetFangScheme()
	colorEnabled := ui.ColorEnabled()
	const indent = "  "

	titleStyle := lipgloss.NewStyle().Bold(colorEnabled)
	tableHeaderStyle := lipgloss.NewStyle().Bold(colorEnabled)
	defaultNameStyle := lipgloss.NewStyle().Bold(colorEnabled)
	watchStyle := lipgloss.NewStyle()
	taskStyle := ui.TaskStyle()
	if colorEnabled {
		titleStyle = titleStyle.Foreground(cs.QuotedString)
		tableHeaderStyle = tableHeaderStyle.Foreground(cs.Base).Faint(true)
		defaultNameStyle = defaultNameStyle.Foreground(cs.Flag).Bold(true)
		watchStyle = watchStyle.Foreground(cs.QuotedString).Reverse(true).Bold(true)
	}

	renderName := func(r listRow) string {
		if !colorEnabled {
			if r.isWatch {
				return r.name + " [W]"
			}
			return r.name
		}
		rendered := taskStyle.Render(r.name)
		if r.isDefault {
			rendered = defaultNameStyle.Render(r.name)
		}
		if r.isWatch {
			rendered += " " + watchStyle.Render("[W]")
		}
		return rendered
	}

	_, _ = fmt.Fprintln(out, titleStyle.Render("Tasks:"))
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(out, indent+"(no matching tasks)")
		return nil
	}

	maxName, maxRuns := lipgloss.Width("NAME"), lipgloss.Width("RUNS")
	for _, r := range rows {
		name := r.name
		if r.isWatch {
			name += " [W]"
		}
		maxName = max(maxName, lipgloss.Width(name))
		maxRuns = max(maxRuns, lipgloss.Width(r.runs))
	}

	pad := func(text string, width int) string {
		textWidth := lipgloss.Width(text)
		if textWidth >= width {
			return text
		}
		return text + strings.Repeat(" ", width-textWidth)
	}

	const gap = 2
	header := strings.Join([]string{pad("NAME", maxName), pad("RUNS", maxRuns), "SYNOPSIS"}, strings.Repeat(" ", gap))
	_, _ = fmt.Fprintln(out, indent+tableHeaderStyle.Render(header))

	leftOffset := lipgloss.Width(indent) + maxName + gap + maxRuns + gap
	synWidth := max(termWidthFloor, detectTermWidth()-leftOffset)
	spaceLeft := strings.Repeat(" ", leftOffset)

	anyWatch := false
	for _, r := range rows {
		anyWatch = anyWatch || r.isWatch
		syn := wordwrap.String(r.synopsis, synWidth)
		syn = strings.ReplaceAll(syn, "\n", "\n"+spaceLeft)
		line := strings.Join([]string{pad(renderName(r), maxName), pad(r.runs, maxRuns), syn}, strings.Repeat(" ", gap))
		_, _ = fmt.Fprintln(out, indent+line)
	}

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintf(out, "%s is run when no task is given.\n", TaskServer)
	if anyWatch {
		_, _ = fmt.Fprintln(out, watchStyle.Render("[W]")+" = keeps running and rebuilds on change")
	}
	return nil
}

func (g *Graph) listRows() []listRow {
	return lo.Map(g.order, func(name string, _ int) listRow {
		t := g.entries[name]
		members := lo.Map(task.Members(t), func(m task.Task, _ int) string { return m.Name() })
		runs := strings.Join(members, ", ")
		if runs == "" {
			runs = "-"
		}
		syn := strings.TrimSpace(task.Description(t))
		if syn == "" {
			syn = "-"
		}
		isDefault := name == TaskServer
		displayName := name
		if isDefault {
			displayName = name + " (" + DefaultTask + ")"
		}
		return listRow{
			name:      displayName,
			runs:      runs,
			synopsis:  syn,
			isDefault: isDefault,
			isWatch:   name == TaskWatch || lo.Contains(g.contains(t), TaskWatch),
		}
	})
}

func filterRows(rows []listRow, filters []string) []listRow {
	needles := lo.FilterMap(filters, func(f string, _ int) (string, bool) {
		f = strings.ToLower(strings.TrimSpace(f))
		return f, f != ""
	})
	if len(needles) == 0 {
		return rows
	}
	return lo.Filter(rows, func(r listRow, _ int) bool {
		haystack := strings.ToLower(strings.Join([]string{r.name, r.runs, r.synopsis}, " "))
		return lo.EveryBy(needles, func(n string) bool { return strings.Contains(haystack, n) })
	})
}

// detectTermWidth returns the terminal width to use for wrapping.
// It prefers the actual stdout size, falls back to $COLUMNS, then 80.
func detectTermWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if v, err := strconv.Atoi(cols); err == nil && v > 0 {
			return v
		}
	}
	return fallbackTermWidth
}
