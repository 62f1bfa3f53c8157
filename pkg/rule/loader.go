package rule

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	_ "embed"

	"github.com/jyasuu/jcheck/pkg/query"
	"github.com/jyasuu/jcheck/pkg/schema"
)

//go:generate go run ../../internal/schemagen/main.go -o rules.v1beta1.json

var (
	//go:embed rules.v1beta1.json
	schemaJSON []byte

	// DefaultValidator validates rules documents against the embedded JSON
	// schema.
	DefaultValidator = schema.MustNewValidator("/rules.v1beta1.json", schemaJSON)

	// ErrLoad indicates a rules document that could not be read, parsed, or
	// validated. It is fatal: no rules are evaluated.
	ErrLoad = errors.New("load rules")
)

// DefaultPath is the rules file used when none is given.
const DefaultPath = "rules.json"

// SchemaJSON returns the embedded rule-set JSON schema.
func SchemaJSON() []byte {
	return schemaJSON
}

// Validator validates a decoded rules document against a schema.
type Validator interface {
	Validate(data any) error
}

// LoaderOpt configures a [Loader].
type LoaderOpt func(*Loader)

// WithValidator sets a custom validator.
func WithValidator(v Validator) LoaderOpt {
	return func(l *Loader) {
		l.validator = v
	}
}

// WithResolver sets the path resolver used to compile rules.
func WithResolver(res query.Resolver) LoaderOpt {
	return func(l *Loader) {
		l.resolver = res
	}
}

// Loader reads a rules document, validates it against the schema, and loads
// it into a compiled [RuleSet]. Rules may be authored in JSON or YAML; both
// decode to the same shape.
type Loader struct {
	validator Validator
	resolver  query.Resolver
	data      []byte
}

// NewLoaderFromBytes creates a [Loader] from byte data.
func NewLoaderFromBytes(data []byte, opts ...LoaderOpt) *Loader {
	l := &Loader{
		data:      data,
		validator: DefaultValidator,
		resolver:  query.NewJSONPath(),
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// NewLoaderFromFile creates a [Loader] from a file path.
func NewLoaderFromFile(path string, opts ...LoaderOpt) (*Loader, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	return NewLoaderFromBytes(data, opts...), nil
}

// Validate checks the document against the schema without loading it.
func (l *Loader) Validate() error {
	var doc any

	dec := yaml.NewDecoder(bytes.NewReader(l.data))

	err := dec.Decode(&doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}

	if l.validator != nil {
		err = l.validator.Validate(doc)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLoad, err)
		}
	}

	return nil
}

// Load validates, decodes, and compiles the rule set.
//
// Structural errors (unreadable data, schema violations, decode failures)
// return a fatal error wrapping [ErrLoad]. Per-rule compile errors (bad path
// query, invalid pattern) are recorded on the rules and do not fail the load.
func (l *Loader) Load() (*RuleSet, error) {
	err := l.Validate()
	if err != nil {
		return nil, err
	}

	rs := NewRuleSet()

	dec := yaml.NewDecoder(bytes.NewReader(l.data))

	err = dec.Decode(rs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	rs.Compile(l.resolver)

	return rs, nil
}

func readFile(path string) ([]byte, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	if fi.IsDir() {
		return nil, fmt.Errorf("%s: path is a directory", path)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: unknown file state", path)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: Potential file inclusion via variable.
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}
