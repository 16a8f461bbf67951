// Package pipeline runs ordered sequences of transformations against a
// dataset version, minting a new version with lineage after each step.
package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/prepflow-labs/prepflow/internal/transform"
)

// StepDef is one transformation request in a pipeline definition.
type StepDef struct {
	Type       string         `yaml:"type"`
	Columns    []string       `yaml:"columns,omitempty"`
	Parameters map[string]any `yaml:"parameters,omitempty"`
}

// Definition is an ordered list of transformation requests, loadable
// from YAML. Recipe persistence is handled elsewhere; SaveAsRecipe is
// carried through for the caller.
type Definition struct {
	Name         string    `yaml:"name"`
	Description  string    `yaml:"description,omitempty"`
	Steps        []StepDef `yaml:"steps"`
	SaveAsRecipe bool      `yaml:"save_as_recipe,omitempty"`
}

// Parse decodes a pipeline definition and validates every step's type
// and column requirements up front.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline definition: %w", err)
	}
	if len(def.Steps) == 0 {
		return nil, fmt.Errorf("pipeline has no steps")
	}
	for i, sd := range def.Steps {
		if _, err := transform.NewStep(transform.Type(sd.Type), sd.Columns, sd.Parameters); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return &def, nil
}

// Load reads a pipeline definition from a YAML file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}
	return Parse(data)
}
