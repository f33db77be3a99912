package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/avvvet/companion-chat/internal/models"
)

const wireMessageSchema = `{
	"type": "object",
	"required": ["text", "sender"],
	"properties": {
		"id": {"type": "string"},
		"text": {"type": "string"},
		"sender": {"enum": ["user", "character"]}
	}
}`

var (
	chatRequestSchema = mustSchema(`{
		"type": "object",
		"required": ["characterId", "messages"],
		"properties": {
			"characterId": {"type": "string", "minLength": 1},
			"messages": {"type": "array", "minItems": 1, "items": ` + wireMessageSchema + `},
			"language": {"type": "string"},
			"summary": {"type": "string"},
			"isAdult": {"type": "boolean"}
		}
	}`)

	summarizeRequestSchema = mustSchema(`{
		"type": "object",
		"required": ["messages", "characterId", "characterName"],
		"properties": {
			"messages": {"type": "array", "minItems": 1, "items": ` + wireMessageSchema + `},
			"characterId": {"type": "string", "minLength": 1},
			"characterName": {"type": "string", "minLength": 1},
			"previousSummary": {"type": "string"}
		}
	}`)

	sendRequestSchema = mustSchema(`{
		"type": "object",
		"required": ["characterId", "text"],
		"properties": {
			"characterId": {"type": "string", "minLength": 1},
			"text": {"type": "string"}
		}
	}`)

	// the HTTP send route takes the character id from the path
	messageBodySchema = mustSchema(`{
		"type": "object",
		"required": ["text"],
		"properties": {
			"text": {"type": "string"}
		}
	}`)

	conversationRequestSchema = mustSchema(`{
		"type": "object",
		"required": ["characterId"],
		"properties": {
			"characterId": {"type": "string", "minLength": 1}
		}
	}`)
)

func mustSchema(schema string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("invalid request schema: %v", err))
	}
	return s
}

// decodeRequest validates a request body against its schema and decodes it.
// Failures come back as a 400 *models.ErrorResponse.
func decodeRequest(schema *gojsonschema.Schema, data []byte, v any) error {
	if !json.Valid(data) {
		return invalidRequest("Invalid request format")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return invalidRequest(fmt.Sprintf("schema validation failed: %v", err))
	}
	if !result.Valid() {
		var errorMsgs []string
		for _, e := range result.Errors() {
			errorMsgs = append(errorMsgs, e.String())
		}
		return invalidRequest(strings.Join(errorMsgs, "; "))
	}

	if err := json.Unmarshal(data, v); err != nil {
		return invalidRequest("Invalid request format")
	}
	return nil
}

func invalidRequest(message string) *models.ErrorResponse {
	return &models.ErrorResponse{
		Message: message,
		Code:    models.ErrorInvalidRequest,
		Status:  http.StatusBadRequest,
	}
}
