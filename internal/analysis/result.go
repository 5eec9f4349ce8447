package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/applytrack/applytrack/internal/domain"
	"github.com/applytrack/applytrack/internal/generation"
	"github.com/xeipuuv/gojsonschema"
)

const resultSchemaJSON = `{
  "type": "object",
  "required": ["matchScore", "missingSkills", "recommendations"],
  "properties": {
    "matchScore": {"type": "integer", "minimum": 0, "maximum": 100},
    "missingSkills": {"type": "array", "items": {"type": "string"}},
    "recommendations": {"type": "array", "items": {"type": "string"}}
  }
}`

var resultSchema = mustSchema(resultSchemaJSON)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid result schema: %v", err))
	}
	return schema
}

// ParseResult extracts an AnalysisResult from a model answer. Markdown code
// fences and text around the JSON object are ignored. Any shape or range
// violation is a *domain.ValidationError wrapping
// generation.ErrInvalidResponse.
func ParseResult(raw string) (*domain.AnalysisResult, error) {
	text := extractJSON(raw)
	if text == "" {
		return nil, domain.NewValidationError("response", "no JSON object found", generation.ErrInvalidResponse)
	}

	res, err := resultSchema.Validate(gojsonschema.NewStringLoader(text))
	if err != nil {
		return nil, domain.NewValidationError("response",
			fmt.Sprintf("malformed JSON: %v", err), generation.ErrInvalidResponse)
	}
	if !res.Valid() {
		first := res.Errors()[0]
		field := first.Field()
		if field == "(root)" || field == "" {
			field = "response"
		}
		return nil, domain.NewValidationError(field, first.Description(), generation.ErrInvalidResponse)
	}

	var out domain.AnalysisResult
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, domain.NewValidationError("response",
			fmt.Sprintf("cannot decode result: %v", err), generation.ErrInvalidResponse)
	}
	if err := out.Validate(); err != nil {
		return nil, domain.NewValidationError("response", err.Error(), generation.ErrInvalidResponse)
	}
	return &out, nil
}

func extractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}
