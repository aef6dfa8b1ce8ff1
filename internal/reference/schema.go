package reference

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const eventSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["timestamp", "prediction"],
  "properties": {
    "timestamp": {"type": "string"},
    "prediction": {"type": "number"},
    "label": {"enum": [0, 1, null]},
    "feature_vector": {"type": "array", "items": {"type": "number"}}
  }
}`

const referenceSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "prediction_mean": {"type": "number"},
    "prediction_std": {"type": "number"},
    "prediction_histogram": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["bin", "prob"],
        "properties": {
          "bin": {"type": "array", "items": {"type": "number"}, "minItems": 2, "maxItems": 2},
          "prob": {"type": "number"}
        }
      }
    },
    "feature_means": {"type": "array", "items": {"type": "number"}},
    "feature_stds": {"type": "array", "items": {"type": "number"}}
  }
}`

var (
	eventSchema     = mustSchema(eventSchemaJSON)
	referenceSchema = mustSchema(referenceSchemaJSON)
)

func mustSchema(def string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(def))
	if err != nil {
		panic(fmt.Sprintf("reference: invalid built-in schema: %v", err))
	}
	return s
}

// validate checks doc against schema and folds every violation into one error.
func validate(schema *gojsonschema.Schema, doc []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var details []string
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("failed validation: %s", strings.Join(details, "; "))
}
