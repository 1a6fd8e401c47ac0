package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoContent indicates a tool call returned no usable text content.
var ErrNoContent = errors.New("no text content in MCP response")

// ParseToolResult decodes the JSON document embedded in the first text
// block of a tool call result. Payload shapes are tool-dependent; callers
// access fields defensively.
func ParseToolResult(content []ContentBlock) (any, error) {
	text := FirstText(content)
	if text == "" {
		return nil, ErrNoContent
	}

	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON in MCP response: %w", err)
	}
	return parsed, nil
}

// FirstText returns the text of the first text block, or "".
func FirstText(content []ContentBlock) string {
	for _, block := range content {
		if block.Type == "text" && block.Text != "" {
			return block.Text
		}
	}
	return ""
}
