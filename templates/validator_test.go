/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package templates

import (
	"testing"
)

func TestValidateJSON(t *testing.T) {
	v := New(nil)

	schema := `{
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"},
			"age": {"type": "integer"}
		}
	}`

	tests := []struct {
		name    string
		data    string
		valid   bool
		wantErr bool
	}{
		{
			name:  "valid with required field",
			data:  `{"name": "John"}`,
			valid: true,
		},
		{
			name:  "valid with all fields",
			data:  `{"name": "John", "age": 30}`,
			valid: true,
		},
		{
			name:  "invalid missing required field",
			data:  `{"age": 30}`,
			valid: false,
		},
		{
			name:  "invalid wrong type",
			data:  `{"name": 123}`,
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := v.ValidateJSON([]byte(tt.data), schema)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result.Valid != tt.valid {
				t.Errorf("valid = %v, want %v; errors: %v", result.Valid, tt.valid, result.Errors)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain JSON object",
			input:    `{"key": "value"}`,
			expected: `{"key": "value"}`,
		},
		{
			name:     "JSON with markdown code fence",
			input:    "```json\n{\"key\": \"value\"}\n```",
			expected: `{"key": "value"}`,
		},
		{
			name:     "JSON with markdown code fence and extra text",
			input:    "Here is the result:\n```json\n{\"key\": \"value\"}\n```\nDone.",
			expected: `{"key": "value"}`,
		},
		{
			name:     "JSON with leading/trailing whitespace",
			input:    "   \n{\"key\": \"value\"}\n   ",
			expected: `{"key": "value"}`,
		},
		{
			name:     "nested JSON object",
			input:    "```\n{\"outer\": {\"inner\": \"value\"}}\n```",
			expected: `{"outer": {"inner": "value"}}`,
		},
		{
			name:     "JSON array",
			input:    "```json\n[1, 2, 3]\n```",
			expected: `[1, 2, 3]`,
		},
		{
			name:     "array of objects",
			input:    "Result:\n[{\"id\": 1}, {\"id\": 2}]",
			expected: `[{"id": 1}, {"id": 2}]`,
		},
		{
			name:     "no JSON - returns original",
			input:    "This is just plain text",
			expected: "This is just plain text",
		},
		{
			name:     "malformed JSON - returns original",
			input:    "{broken json",
			expected: "{broken json",
		},
		{
			name:     "complex response with explanation",
			input:    "I've analyzed the requirement.\n\n```json\n{\"verdict\": \"Pass\", \"evidence\": \"Found in section 4.1\"}\n```\n\nLet me know if you need more details.",
			expected: `{"verdict": "Pass", "evidence": "Found in section 4.1"}`,
		},
		{
			name:     "text wrapper with plain JSON inside",
			input:    `{"text": "{\"key\": \"value\"}"}`,
			expected: `{"key": "value"}`,
		},
		{
			name:     "text wrapper with markdown code fence inside",
			input:    "{\"text\": \"Here is the result:\\n```json\\n{\\\"verdict\\\": \\\"Pass\\\"}\\n```\"}",
			expected: `{"verdict": "Pass"}`,
		},
		{
			name:     "text wrapper with complex response",
			input:    "{\"text\": \"Based on my analysis...\\n\\n```json\\n{\\\"section\\\": \\\"4.1\\\", \\\"verdict\\\": \\\"Complete\\\", \\\"comments\\\": \\\"Evidence found\\\"}\\n```\\n\\nLet me know if you need more.\"}",
			expected: `{"section": "4.1", "verdict": "Complete", "comments": "Evidence found"}`,
		},
		{
			name:     "non-wrapper JSON with text field - should not unwrap",
			input:    `{"text": "hello", "other": "field"}`,
			expected: `{"text": "hello", "other": "field"}`,
		},
		{
			name:     "schema response that happens to have text field",
			input:    `{"verdict": "Pass", "text": "some text", "evidence": "found"}`,
			expected: `{"verdict": "Pass", "text": "some text", "evidence": "found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractJSON(tt.input)
			if result != tt.expected {
				t.Errorf("ExtractJSON() = %q, want %q", result, tt.expected)
			}
		})
	}
}
