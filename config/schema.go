package config

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/nodegate/errors"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return compiledSchema, schemaErr
}

// Schema returns the JSON schema config documents are validated against.
func Schema() []byte {
	out := make([]byte, len(schemaJSON))
	copy(out, schemaJSON)
	return out
}

// validateDocument checks one decoded config layer against the schema. source
// names the layer in error messages.
func validateDocument(source string, doc map[string]any) error {
	schema, err := loadSchema()
	if err != nil {
		return errors.WrapFatal(err, "Loader", "validateDocument", "compile config schema")
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return errors.WrapInvalid(err, "Loader", "validateDocument", "validate "+source)
	}

	if !result.Valid() {
		var b strings.Builder
		fmt.Fprintf(&b, "%s does not match the config schema:", source)
		for _, desc := range result.Errors() {
			fmt.Fprintf(&b, "\n  - %s: %s", desc.Field(), desc.Description())
		}
		return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrInvalidConfig, b.String()),
			"Loader", "validateDocument", "schema validation")
	}

	return nil
}
