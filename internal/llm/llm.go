// Package llm wraps structured (JSON) calls against an external
// text-generation model. A StructuredCall pairs a prompt template with a
// typed result and validates every response before handing it back.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// Generator is the narrow surface of the external model. Implementations
// must request a JSON-constrained response with deterministic sampling.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SchemaValidationError reports a model response that did not match the
// expected result shape. It carries the raw response for diagnostics.
type SchemaValidationError struct {
	Raw    string
	Reason string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("structured response failed validation: %s", e.Reason)
}

// StructuredCall renders a prompt template, invokes the generator and
// decodes the JSON response into T. An optional Validate hook enforces
// constraints the type system cannot (value ranges, non-empty fields).
type StructuredCall[T any] struct {
	tmpl     *template.Template
	gen      Generator
	validate func(T) error
}

func NewStructuredCall[T any](gen Generator, name, promptTemplate string, validate func(T) error) (*StructuredCall[T], error) {
	tmpl, err := template.New(name).Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %q: %w", name, err)
	}
	return &StructuredCall[T]{tmpl: tmpl, gen: gen, validate: validate}, nil
}

// Invoke runs the call. Transport errors from the generator are surfaced
// unchanged; decode or validation failures yield *SchemaValidationError.
// There are no retries at this layer.
func (c *StructuredCall[T]) Invoke(ctx context.Context, inputs map[string]string) (T, error) {
	var result T

	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, inputs); err != nil {
		return result, fmt.Errorf("render prompt %q: %w", c.tmpl.Name(), err)
	}

	raw, err := c.gen.Generate(ctx, buf.String())
	if err != nil {
		return result, err
	}

	dec := json.NewDecoder(strings.NewReader(stripFences(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&result); err != nil {
		return result, &SchemaValidationError{Raw: raw, Reason: err.Error()}
	}

	if c.validate != nil {
		if err := c.validate(result); err != nil {
			return result, &SchemaValidationError{Raw: raw, Reason: err.Error()}
		}
	}

	return result, nil
}

// stripFences removes a markdown code fence some models wrap JSON in even
// when a JSON MIME type was requested.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
