// Package document loads JSON and YAML documents into normalized value trees.
package document

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-yaml"
)

// ErrLoad indicates a document that could not be read or parsed.
var ErrLoad = errors.New("load document")

// Store loads and caches parsed documents by path.
//
// Safe for concurrent use; rules evaluating in parallel may resolve the same
// document.
type Store struct {
	docs map[string]any
	mu   sync.Mutex
}

// NewStore creates an empty [Store].
func NewStore() *Store {
	return &Store{docs: map[string]any{}}
}

// Load returns the parsed document at path, reading it on first use.
//
// Returns an error wrapping [ErrLoad] if the file cannot be read or parsed.
func (s *Store) Load(path string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.docs[path]; ok {
		return doc, nil
	}

	data, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrLoad, path, err)
	}

	s.docs[path] = doc

	return doc, nil
}

// Invalidate drops the cached parse of path, forcing a reload on next use.
func (s *Store) Invalidate(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, path)
}

// Parse decodes a JSON or YAML document into a normalized value tree.
func Parse(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	return Normalize(v), nil
}

// Normalize canonicalizes a decoded tree into the shapes the predicate
// library expects: map[string]any objects, []any arrays, float64 numbers.
// YAML decoding produces integer types and can produce non-string keys.
// The returned tree shares no containers with the input.
func Normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = Normalize(val)
		}

		return m

	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = Normalize(val)
		}

		return m

	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}

		return out

	case int:
		return float64(t)

	case int64:
		return float64(t)

	case uint64:
		return float64(t)

	case float32:
		return float64(t)

	default:
		return v
	}
}

func readFile(path string) ([]byte, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if fi.IsDir() {
		return nil, fmt.Errorf("%q is a directory", path)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%q is not a regular file", path)
	}

	return os.ReadFile(path)
}
