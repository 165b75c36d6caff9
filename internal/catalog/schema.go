package catalog

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const documentSchema = `{
	"type": "object",
	"required": ["version", "scholarships"],
	"properties": {
		"version": {"type": "string", "minLength": 1},
		"scholarships": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["id", "name", "category", "incomeLimit", "benefit"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"name": {"type": "string", "minLength": 1},
					"category": {
						"type": "array",
						"minItems": 1,
						"items": {"type": "string", "minLength": 1}
					},
					"courses": {"type": "array", "items": {"type": "string"}},
					"incomeLimit": {"type": "integer", "minimum": 0},
					"benefit": {"type": "string"},
					"description": {"type": "string"},
					"tags": {"type": "array", "items": {"type": "string"}},
					"documents": {"type": "array", "items": {"type": "string"}},
					"deadline": {"type": "string"},
					"applicationLink": {"type": "string"}
				}
			}
		}
	}
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
	if err != nil {
		panic(fmt.Sprintf("catalog: compile document schema: %v", err))
	}
	return s
}

// validateDocument checks a decoded catalog document against the schema.
func validateDocument(doc interface{}) error {
	result, err := compiledSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("catalog: validate document: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("catalog: invalid document: %s", strings.Join(msgs, "; "))
}
