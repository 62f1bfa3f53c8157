package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/aymanbagabas/go-udiff"
	"github.com/muesli/termenv"

	"github.com/jyasuu/jcheck/pkg/checker"
)

// Pretty is [Text] plus, for each failing match, the offending value rendered
// as highlighted JSON and, for equality and containment checks, a unified
// expected-vs-actual diff.
type Pretty struct {
	text      *Text
	lexer     chroma.Lexer
	formatter chroma.Formatter
	style     *chroma.Style
}

// NewPretty creates a [Pretty] renderer.
func NewPretty(opts ...Opt) *Pretty {
	o := newOptions(opts)

	lexer := lexers.Get("JSON")
	lexer = chroma.Coalesce(lexer)

	formatterName := "noop"
	if o.color {
		switch termenv.ColorProfile() {
		case termenv.TrueColor:
			formatterName = "terminal16m"

		case termenv.ANSI256:
			formatterName = "terminal256"

		case termenv.ANSI:
			formatterName = "terminal8"

		case termenv.Ascii:
		}
	}

	return &Pretty{
		text:      NewText(opts...),
		lexer:     lexer,
		formatter: formatters.Get(formatterName),
		style:     styles.Get("monokai"),
	}
}

// Render implements [Renderer].
func (p *Pretty) Render(w io.Writer, results []checker.Result) error {
	for _, res := range results {
		err := p.text.renderResult(w, res)
		if err != nil {
			return err
		}

		err = p.renderFailures(w, res)
		if err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "\n%s\n", p.text.summary(results))
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return nil
}

func (p *Pretty) renderFailures(w io.Writer, res checker.Result) error {
	for _, f := range res.Failures {
		if f.Value == nil && f.Expected == nil {
			continue
		}

		var block string

		if f.Expected != nil {
			block = p.diff(f.Expected, f.Value)
		} else {
			highlighted, err := p.highlight(marshalValue(f.Value))
			if err != nil {
				return err
			}

			block = highlighted
		}

		_, err := fmt.Fprintln(w, p.text.indent(strings.TrimRight(block, "\n")))
		if err != nil {
			return fmt.Errorf("write failure detail: %w", err)
		}
	}

	return nil
}

// diff renders a unified diff from the expected operand to the failing value,
// with inserted and deleted lines styled like the pass and fail marks.
func (p *Pretty) diff(expected, actual any) string {
	d := udiff.Unified("expected", "actual", marshalValue(expected)+"\n", marshalValue(actual)+"\n")

	lines := strings.Split(strings.TrimRight(d, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+"):
			lines[i] = p.text.failStyle.Render(line)

		case strings.HasPrefix(line, "-"):
			lines[i] = p.text.passStyle.Render(line)
		}
	}

	return strings.Join(lines, "\n")
}

func (p *Pretty) highlight(source string) (string, error) {
	iterator, err := p.lexer.Tokenise(nil, source)
	if err != nil {
		return "", fmt.Errorf("tokenise value: %w", err)
	}

	var sb strings.Builder

	err = p.formatter.Format(&sb, p.style, iterator)
	if err != nil {
		return "", fmt.Errorf("format value: %w", err)
	}

	return sb.String(), nil
}

func marshalValue(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}

	return string(b)
}
