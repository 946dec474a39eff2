package http

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Request body schemas. Compiled once at startup; a schema that fails to
// compile is a programming error.
var (
	textRequestSchema     = mustSchema(textRequestSchemaJSON)
	imageRequestSchema    = mustSchema(imageRequestSchemaJSON)
	realtimeRequestSchema = mustSchema(realtimeRequestSchemaJSON)
	mixedRequestSchema    = mustSchema(mixedRequestSchemaJSON)
)

const textRequestSchemaJSON = `{
	"type": "object",
	"required": ["prompt"],
	"properties": {
		"prompt": {"type": "string", "minLength": 1},
		"user_id": {"type": "string"},
		"max_tokens": {"type": "integer", "minimum": 1},
		"temperature": {"type": "number", "minimum": 0, "maximum": 2},
		"threshold": {"type": "number", "minimum": 0, "maximum": 1},
		"max_iterations": {"type": "integer", "minimum": 1, "maximum": 10}
	},
	"additionalProperties": false
}`

const imageRequestSchemaJSON = `{
	"type": "object",
	"required": ["prompt"],
	"properties": {
		"prompt": {"type": "string", "minLength": 1},
		"user_id": {"type": "string"},
		"style": {"type": "string"},
		"dimensions": {
			"type": "object",
			"required": ["width", "height"],
			"properties": {
				"width": {"type": "integer", "minimum": 16, "maximum": 4096},
				"height": {"type": "integer", "minimum": 16, "maximum": 4096}
			},
			"additionalProperties": false
		}
	},
	"additionalProperties": false
}`

const realtimeRequestSchemaJSON = `{
	"type": "object",
	"required": ["query"],
	"properties": {
		"query": {"type": "string", "minLength": 1},
		"user_id": {"type": "string"},
		"sources": {"type": "array", "items": {"type": "string", "enum": ["web", "youtube", "custom"]}},
		"max_results": {"type": "integer", "minimum": 1, "maximum": 50}
	},
	"additionalProperties": false
}`

const mixedRequestSchemaJSON = `{
	"type": "object",
	"required": ["input", "modalities"],
	"properties": {
		"input": {"type": "string", "minLength": 1},
		"modalities": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string", "enum": ["text", "image", "realtime"]}
		},
		"user_id": {"type": "string"}
	},
	"additionalProperties": false
}`

func mustSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid request schema: %v", err))
	}
	return schema
}

// validateBody checks a raw JSON body against a compiled schema and returns
// a human-readable message describing every violation
func validateBody(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}
