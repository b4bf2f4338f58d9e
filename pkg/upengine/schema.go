package upengine

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemas holds one JSON Schema per operation kind, catching shapes the
// go-playground/validator struct tags can't express (e.g. "a package entry
// is either a bare string or a map with a name and only the fields that
// kind knows").
//
//go:embed schemas/*.json
var schemaFS embed.FS

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

func compiledSchemas() (map[string]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		entries, err := schemaFS.ReadDir("schemas")
		if err != nil {
			compileErr = fmt.Errorf("upengine: reading embedded schemas: %w", err)
			return
		}
		compiled = make(map[string]*jsonschema.Schema, len(entries))
		for _, entry := range entries {
			kind := entry.Name()[:len(entry.Name())-len(".json")]
			raw, err := schemaFS.ReadFile("schemas/" + entry.Name())
			if err != nil {
				compileErr = fmt.Errorf("upengine: reading schema %s: %w", entry.Name(), err)
				return
			}
			var doc any
			if err := json.Unmarshal(raw, &doc); err != nil {
				compileErr = fmt.Errorf("upengine: parsing schema %s: %w", entry.Name(), err)
				return
			}
			url := "mem://omni/" + entry.Name()
			if err := compiler.AddResource(url, doc); err != nil {
				compileErr = fmt.Errorf("upengine: adding schema resource %s: %w", entry.Name(), err)
				return
			}
			schema, err := compiler.Compile(url)
			if err != nil {
				compileErr = fmt.Errorf("upengine: compiling schema %s: %w", entry.Name(), err)
				return
			}
			compiled[kind] = schema
		}
	})
	return compiled, compileErr
}

// ValidateShape validates a raw operation map against kind's embedded JSON
// Schema, if one is registered for it. Kinds without a schema file are
// validated by their Params struct tags alone.
func ValidateShape(kind string, raw map[string]any) error {
	schemas, err := compiledSchemas()
	if err != nil {
		return err
	}
	schema, ok := schemas[kind]
	if !ok {
		return nil
	}
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("upengine: marshaling %s operation for validation: %w", kind, err)
	}
	var normalized any
	if err := json.Unmarshal(asJSON, &normalized); err != nil {
		return fmt.Errorf("upengine: re-parsing %s operation for validation: %w", kind, err)
	}
	if err := schema.Validate(normalized); err != nil {
		return fmt.Errorf("%s operation shape invalid: %w", kind, err)
	}
	return nil
}
