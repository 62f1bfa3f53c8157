// Package schema validates decoded documents against JSON schemas.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidationError represents a schema violation. It carries a [*yaml.Path] to
// the most specific failing location, usable with [yaml.Path.AnnotateSource]
// for precise error reporting.
type ValidationError struct {
	Path *yaml.Path // Path to the validation error.
	Err  error      // Underlying error.
}

func (e *ValidationError) Error() string {
	if e.Path != nil {
		return fmt.Sprintf("error at %s: %v", e.Path.String(), e.Err)
	}

	return fmt.Sprintf("validation error: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validator validates data against a JSON schema.
// Uses [github.com/santhosh-tekuri/jsonschema/v6].
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator creates a new [Validator] with the provided JSON schema data.
func NewValidator(url string, schemaData []byte) (*Validator, error) {
	var schema any

	err := json.Unmarshal(schemaData, &schema)
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()

	err = compiler.AddResource(url, schema)
	if err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	jss, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Validator{schema: jss}, nil
}

// MustNewValidator creates a new [Validator] and panics on error.
func MustNewValidator(url string, schemaData []byte) *Validator {
	v, err := NewValidator(url, schemaData)
	if err != nil {
		panic(err)
	}

	return v
}

// Validate validates the given data against the schema. Schema violations are
// returned as a [*ValidationError].
func (v *Validator) Validate(data any) error {
	err := v.schema.Validate(data)
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return fmt.Errorf("schema validation: %w", err)
	}

	// Point at the cause with the most specific instance location.
	return &ValidationError{
		Path: pathFromLocation(findMostSpecificLocation(validationErr)),
		Err:  validationErr,
	}
}

// findMostSpecificLocation recursively searches through all causes to find the
// one with the longest InstanceLocation.
func findMostSpecificLocation(err *jsonschema.ValidationError) []string {
	longest := err.InstanceLocation

	for _, cause := range err.Causes {
		candidate := findMostSpecificLocation(cause)
		if len(candidate) > len(longest) {
			longest = candidate
		}
	}

	return longest
}

// pathFromLocation converts an InstanceLocation slice to a [*yaml.Path].
func pathFromLocation(location []string) *yaml.Path {
	pb := yaml.PathBuilder{}
	current := pb.Root()

	for _, part := range location {
		// Numeric parts are array indexes.
		var index uint

		_, err := fmt.Sscanf(part, "%d", &index)
		if err == nil {
			current = current.Index(index)
		} else {
			current = current.Child(part)
		}
	}

	return current.Build()
}
