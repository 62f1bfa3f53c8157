// Package report renders rule results and maps failures to the process exit
// status.
package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/jyasuu/jcheck/pkg/checker"
)

// ErrChecksFailed indicates that at least one rule failed. The CLI maps it to
// a non-zero exit status.
var ErrChecksFailed = errors.New("checks failed")

// ErrUnknownFormat indicates an unrecognized output format name.
var ErrUnknownFormat = errors.New("unknown output format")

// Format names an output renderer.
type Format string

const (
	// FormatText is the default line-per-rule renderer.
	FormatText Format = "text"
	// FormatJSON renders the result sequence as a JSON document.
	FormatJSON Format = "json"
	// FormatPretty is [FormatText] plus highlighted offending values and
	// expected-vs-actual diffs.
	FormatPretty Format = "pretty"
)

// AllFormats lists the valid format names.
var AllFormats = []string{
	string(FormatText),
	string(FormatJSON),
	string(FormatPretty),
}

// Renderer writes a result sequence to an output.
type Renderer interface {
	Render(w io.Writer, results []checker.Result) error
}

// NewRenderer creates the [Renderer] for a format name.
func NewRenderer(format string, opts ...Opt) (Renderer, error) {
	switch Format(format) {
	case FormatText:
		return NewText(opts...), nil

	case FormatJSON:
		return NewJSON(), nil

	case FormatPretty:
		return NewPretty(opts...), nil
	}

	return nil, fmt.Errorf("%w: %q, expected one of: %s", ErrUnknownFormat, format, AllFormats)
}

// Opt configures a renderer.
type Opt func(*options)

type options struct {
	color bool
	width int
}

// WithColor enables styled output. Callers typically gate this on the output
// being a terminal.
func WithColor(color bool) Opt {
	return func(o *options) {
		o.color = color
	}
}

// WithWidth sets the wrap width for reason text. Zero disables wrapping.
func WithWidth(width int) Opt {
	return func(o *options) {
		o.width = width
	}
}

func newOptions(opts []Opt) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Verdict folds a result sequence into the run's final error: nil when every
// rule passed, [ErrChecksFailed] otherwise.
func Verdict(results []checker.Result) error {
	failed := 0

	for _, res := range results {
		if !res.Passed {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d rules failed", ErrChecksFailed, failed, len(results))
	}

	return nil
}
