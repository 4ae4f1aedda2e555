package report

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/weiihann/pvcbench/harness"
)

// ErrInvalidRuns is returned when a runs file does not match the runs
// schema.
var ErrInvalidRuns = errors.New("invalid runs file")

const schemaURL = "https://github.com/weiihann/pvcbench/runs.schema.json"

//go:embed runs.schema.json
var runsSchema []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(runsSchema))
		if err != nil {
			schemaErr = fmt.Errorf("parse runs schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add runs schema: %w", err)
			return
		}

		schema, schemaErr = c.Compile(schemaURL)
	})

	return schema, schemaErr
}

// Load reads and validates the runs file at path.
func Load(path string) ([]harness.Measurement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read runs file: %w", err)
	}

	runs, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return runs, nil
}

// Decode validates data against the runs schema and decodes it.
func Decode(data []byte) ([]harness.Measurement, error) {
	sch, err := compiledSchema()
	if err != nil {
		return nil, err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRuns, err)
	}

	if err := sch.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRuns, err)
	}

	var runs []harness.Measurement
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("decode runs: %w", err)
	}

	return runs, nil
}
