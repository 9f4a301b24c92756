// Package validation checks user input and reference data files
// before the core is allowed to act on them.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// faqSchema describes the FAQ knowledge-base file. Records are never
// mutated, so a single load-time check suffices.
const faqSchema = `{
	"type": "object",
	"required": ["records"],
	"properties": {
		"records": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "category", "question", "answer", "keywords"],
				"properties": {
					"id": {"type": "integer", "minimum": 1},
					"category": {"type": "string", "minLength": 1},
					"question": {"type": "string", "minLength": 1},
					"answer": {"type": "string", "minLength": 1},
					"keywords": {
						"type": "array",
						"items": {"type": "string", "minLength": 1}
					}
				}
			}
		}
	}
}`

// ValidateFAQDocument validates raw FAQ JSON against the schema and
// returns a single error listing every violation.
func ValidateFAQDocument(raw []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(faqSchema)
	docLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("faq schema validation: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("faq document invalid: %s", strings.Join(msgs, "; "))
}
