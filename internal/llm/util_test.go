package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"json code block", "```json\n{\"queries\": [\"a\"]}\n```", `{"queries": ["a"]}`},
		{"generic code block", "```\n{\"key\": \"value\"}\n```", `{"key": "value"}`},
		{"code block with language", "```javascript\n{\"key\": \"value\"}\n```", `{"key": "value"}`},
		{"plain JSON", `{"key": "value"}`, `{"key": "value"}`},
		{"preamble before object", "Here is the profile:\n{\"age\": 18}", `{"age": 18}`},
		{"preamble before array", "Terms:\n[\"nurse salary\", \"nurse education\"]", `["nurse salary", "nurse education"]`},
		{"trailing text", "{\"key\": \"value\"}\n\nLet me know if you need anything else!", `{"key": "value"}`},
		{"nested", "Output: {\"a\": {\"b\": {\"c\": \"deep\"}}}", `{"a": {"b": {"c": "deep"}}}`},
		{"escaped quotes", `Result: {"message": "He said \"hello\""}`, `{"message": "He said \"hello\""}`},
		{"braces in strings", `{"template": "Hello {name}!"}`, `{"template": "Hello {name}!"}`},
		{"no json", "I cannot answer that", "I cannot answer that"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestExtractBalanced(t *testing.T) {
	assert.Equal(t, `[[1, 2], [3, 4]]`, extractJSONArray(`[[1, 2], [3, 4]] extra`))
	assert.Equal(t, `{"items": [1, 2, 3]}`, extractJSONObject(`{"items": [1, 2, 3]}`))
	assert.Empty(t, extractJSONObject(`{"open": "never closed"`))
	assert.Empty(t, extractJSONObject("not json"))
	assert.Empty(t, extractJSONArray(""))
}
