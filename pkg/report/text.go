package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/exp/charmtone"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jyasuu/jcheck/pkg/checker"
)

const (
	passMark = "✓"
	failMark = "✗"

	reasonIndent = "    "
)

// Text renders one line per rule, failure reasons indented beneath failing
// rules, and a pass/fail summary.
type Text struct {
	passStyle   lipgloss.Style
	failStyle   lipgloss.Style
	subtleStyle lipgloss.Style
	width       int
}

// NewText creates a [Text] renderer.
func NewText(opts ...Opt) *Text {
	o := newOptions(opts)

	t := &Text{width: o.width}
	if o.color {
		t.passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Guac.Hex()))
		t.failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Cherry.Hex()))
		t.subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Squid.Hex()))
	}

	return t
}

// Render implements [Renderer].
func (t *Text) Render(w io.Writer, results []checker.Result) error {
	for _, res := range results {
		err := t.renderResult(w, res)
		if err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "\n%s\n", t.summary(results))
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return nil
}

func (t *Text) renderResult(w io.Writer, res checker.Result) error {
	line := fmt.Sprintf("%s %s", t.passStyle.Render(passMark), res.Name)
	if !res.Passed {
		line = fmt.Sprintf("%s %s", t.failStyle.Render(failMark), res.Name)
	}

	_, err := fmt.Fprintln(w, line)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	for _, reason := range res.Reasons {
		_, err = fmt.Fprintln(w, t.subtleStyle.Render(t.indent(reason)))
		if err != nil {
			return fmt.Errorf("write reason: %w", err)
		}
	}

	return nil
}

func (t *Text) indent(reason string) string {
	if t.width > len(reasonIndent) {
		reason = wordwrap.String(reason, t.width-len(reasonIndent))
	}

	lines := strings.Split(reason, "\n")
	for i, line := range lines {
		lines[i] = reasonIndent + line
	}

	return strings.Join(lines, "\n")
}

func (t *Text) summary(results []checker.Result) string {
	passed := 0

	for _, res := range results {
		if res.Passed {
			passed++
		}
	}

	failed := len(results) - passed

	s := fmt.Sprintf("%d checks, %d passed, %d failed", len(results), passed, failed)
	if failed > 0 {
		return t.failStyle.Render(s)
	}

	return t.passStyle.Render(s)
}
