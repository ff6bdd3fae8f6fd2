package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	sigsyaml "sigs.k8s.io/yaml"
)

//go:embed catalog_schema.json
var catalogSchema []byte

// ValidateAgainstSchema checks a YAML document against a JSON schema. name
// identifies the schema in error messages and ref optionally selects a
// subschema within it.
func ValidateAgainstSchema(name string, schema []byte, data []byte, ref string) error {
	jsonData, err := sigsyaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("failed to load schema %s: %w", name, err)
	}

	target := name
	if ref != "" {
		target = name + ref
	}
	sch, err := compiler.Compile(target)
	if err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", target, err)
	}

	return sch.Validate(doc)
}

// validateCatalogYAML checks a package descriptor document against the
// bundled catalog schema.
func validateCatalogYAML(data []byte) error {
	return ValidateAgainstSchema("catalog_schema.json", catalogSchema, data, "")
}
