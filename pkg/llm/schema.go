package llm

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaFor generates a JSON schema map for T from its struct tags, shaped
// for OpenAI function parameters.
//
// Supported tags:
//   - json:"name" - parameter name
//   - jsonschema:"required" - mark as required
//   - jsonschema:"description=..." - parameter description
//   - jsonschema:"enum=a,enum=b" - allowed values
//   - jsonschema:"minimum=N,maximum=M" - numeric bounds
func SchemaFor[T any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		// Required fields come from jsonschema tags, not omitempty.
		RequiredFromJSONSchemaTags: true,
		// Inline nested types instead of $ref definitions.
		ExpandedStruct: true,
		DoNotReference: true,
	}

	schema := reflector.Reflect(new(T))

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	// Function parameters do not carry schema metadata.
	delete(result, "$schema")
	delete(result, "$id")

	return result, nil
}
