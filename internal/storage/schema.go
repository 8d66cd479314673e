package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema validates raw record bytes against a compiled JSON schema.
type Schema struct {
	name   string
	schema *jsonschema.Schema
}

// CompileSchema compiles a JSON schema document. name identifies the schema
// in error messages.
func CompileSchema(name string, doc []byte) (*Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	s, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, schema: s}, nil
}

// MustCompileSchema is like CompileSchema but panics on error. It is meant
// for package-level schema constants.
func MustCompileSchema(name string, doc []byte) *Schema {
	s, err := CompileSchema(name, doc)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks data against the schema. Decode failures and schema
// violations both wrap ErrSchemaViolation.
func (s *Schema) Validate(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSchemaViolation, s.name, err)
	}
	if err := s.schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSchemaViolation, s.name, err)
	}
	return nil
}

// ReadValidated reads a record, validates it against schema and decodes it
// into v. A record that fails validation yields an error wrapping both
// ErrCorruptRecord and ErrSchemaViolation.
func (fs *FileStore) ReadValidated(name string, schema *Schema, v any) (bool, error) {
	data, found, err := fs.ReadRaw(name)
	if err != nil || !found {
		return found, err
	}
	if err := schema.Validate(data); err != nil {
		return true, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, fs.Path(name), err)
	}
	return true, nil
}
