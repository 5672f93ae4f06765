package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed config.schema.json
var schemaJSON []byte

const schemaURL = "config.schema.json"

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
})

// ValidateFile checks a config file against the config schema. Unlike Load,
// it rejects unknown sections and keys and values of the wrong type.
func ValidateFile(path string) error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}

	// Round-trip through JSON so every parser's number types look alike.
	raw, err := json.Marshal(k.Raw())
	if err != nil {
		return fmt.Errorf("encode config %s: %w", path, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("encode config %s: %w", path, err)
	}

	schema, err := compileSchema()
	if err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}
