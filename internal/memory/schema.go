package memory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/avvvet/companion-chat/internal/models"
)

const messageSchema = `{
	"type": "object",
	"required": ["id", "text", "sender", "timestamp"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"text": {"type": "string"},
		"sender": {"enum": ["user", "character"]},
		"timestamp": {"type": "string", "format": "date-time"}
	}
}`

var recordSchema = `{
	"type": "object",
	"required": ["characterId", "messages"],
	"properties": {
		"characterId": {"type": "string", "minLength": 1},
		"lastUpdated": {"type": "string", "format": "date-time"},
		"messages": {"type": "array", "items": ` + messageSchema + `}
	}
}`

const summarySchema = `{
	"type": "object",
	"required": ["characterId", "summary", "lastMessageId", "messageCount", "createdAt", "updatedAt"],
	"properties": {
		"characterId": {"type": "string", "minLength": 1},
		"summary": {"type": "string"},
		"lastMessageId": {"type": "string"},
		"messageCount": {"type": "integer", "minimum": 0},
		"createdAt": {"type": "string", "format": "date-time"},
		"updatedAt": {"type": "string", "format": "date-time"}
	}
}`

var (
	recordValidator  = mustCompile(recordSchema)
	summaryValidator = mustCompile(summarySchema)
)

func mustCompile(schema string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("invalid storage schema: %v", err))
	}
	return s
}

// validate checks raw JSON against a schema before it is trusted as a typed record
func validate(schema *gojsonschema.Schema, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON")
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		var errorMsgs []string
		for _, e := range result.Errors() {
			errorMsgs = append(errorMsgs, e.String())
		}
		return fmt.Errorf("schema mismatch: %s", strings.Join(errorMsgs, "; "))
	}
	return nil
}

func decodeRecord(data []byte) (*models.ConversationRecord, error) {
	if err := validate(recordValidator, data); err != nil {
		return nil, err
	}
	var record models.ConversationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse conversation record: %w", err)
	}
	return &record, nil
}

func decodeSummary(data []byte) (*models.ConversationSummary, error) {
	if err := validate(summaryValidator, data); err != nil {
		return nil, err
	}
	var summary models.ConversationSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}
	return &summary, nil
}
