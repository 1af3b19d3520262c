// Package llm is the boundary to the text generation capability: given a
// system prompt, a user prompt and a result schema it returns a validated
// structured object or fails.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// ErrSchemaValidation is wrapped by every error caused by output that does
// not satisfy the requested schema.
var ErrSchemaValidation = errors.New("generation output failed schema validation")

// Request is a single structured generation call.
type Request struct {
	System string
	Prompt string
	Schema *jsonschema.Schema
	// UsageLabel names the feature for usage accounting on the provider side.
	UsageLabel string
	UserEmail  string
}

// Generator produces an object matching req.Schema and decodes it into out,
// which must be a pointer to a struct.
type Generator interface {
	Generate(ctx context.Context, req Request, out any) error
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request, out any) error

func (f GeneratorFunc) Generate(ctx context.Context, req Request, out any) error {
	return f(ctx, req, out)
}

// Validator is implemented by result types with checks beyond the schema.
type Validator interface {
	Validate() error
}

// SchemaFor reflects the JSON schema of v's type with all properties inlined.
func SchemaFor(v any) *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	return r.Reflect(v)
}

// DecodeObject validates raw against schema and decodes it into out.
// Required properties must be present and non-null, unknown properties are
// rejected, and out's Validate method runs when it has one.
func DecodeObject(raw json.RawMessage, schema *jsonschema.Schema, out any) error {
	if rv := reflect.ValueOf(out); rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", out)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("%w: output is not a JSON object: %v", ErrSchemaValidation, err)
	}
	if schema != nil {
		for _, name := range schema.Required {
			v, ok := fields[name]
			if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
				return fmt.Errorf("%w: missing required property %q", ErrSchemaValidation, name)
			}
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}

	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrSchemaValidation, err)
		}
	}
	return nil
}
