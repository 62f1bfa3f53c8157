package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jyasuu/jcheck/pkg/checker"
)

// JSON renders the result sequence as a JSON document, for machine
// consumption.
type JSON struct{}

// NewJSON creates a [JSON] renderer.
func NewJSON() *JSON {
	return &JSON{}
}

// Render implements [Renderer].
func (*JSON) Render(w io.Writer, results []checker.Result) error {
	passed := 0

	for _, res := range results {
		if res.Passed {
			passed++
		}
	}

	doc := struct {
		Results []checker.Result `json:"results"`
		Checks  int              `json:"checks"`
		Passed  int              `json:"passed"`
		Failed  int              `json:"failed"`
	}{
		Results: results,
		Checks:  len(results),
		Passed:  passed,
		Failed:  len(results) - passed,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	return nil
}
