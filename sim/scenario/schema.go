package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://cstopics.dev/schema/scenario-v1.json"

//go:embed schema.json
var schemaJSON []byte

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// Schema returns the JSON Schema scenario files are checked against.
func Schema() []byte {
	return append([]byte(nil), schemaJSON...)
}

func scenarioSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			compileErr = fmt.Errorf("add scenario schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile(schemaURL)
	})
	return compiled, compileErr
}

// CheckSchema validates spec against the scenario JSON Schema. The spec is
// marshalled to JSON first, so files in any format are checked the same way.
func CheckSchema(spec *Spec) error {
	schema, err := scenarioSchema()
	if err != nil {
		return err
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("encoding scenario for schema check: %w", err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("decoding scenario for schema check: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// CheckRunSchema validates a single run, as received by the HTTP API.
func CheckRunSchema(run RunSpec) error {
	return CheckSchema(&Spec{Seed: DefaultSeed, Runs: []RunSpec{run}})
}
