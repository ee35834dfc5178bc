/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package templates validates agent output against caller-supplied JSON
// schemas and recovers JSON from free-form model responses.
package templates

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/davidwarshawsky/scorchcrawl/logging"
	"github.com/xeipuuv/gojsonschema"
)

// Validator validates JSON data against schemas.
type Validator struct {
	logger *logging.Logger
}

// ValidationResult represents the result of a validation.
type ValidationResult struct {
	Valid     bool     `json:"valid"`
	Errors    []string `json:"errors,omitempty"`     // User-friendly error messages
	RawErrors []string `json:"raw_errors,omitempty"` // Original error messages from gojsonschema
}

// New creates a new Validator.
func New(logger *logging.Logger) *Validator {
	return &Validator{logger: logger}
}

// ValidateJSON validates JSON data against a schema string.
func (v *Validator) ValidateJSON(data []byte, schemaJSON string) (*ValidationResult, error) {
	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	validationResult := &ValidationResult{
		Valid: result.Valid(),
	}

	if !result.Valid() {
		for _, desc := range result.Errors() {
			rawError := desc.String()
			validationResult.RawErrors = append(validationResult.RawErrors, rawError)
			validationResult.Errors = append(validationResult.Errors, formatValidationError(rawError))
		}
	}

	return validationResult, nil
}

// formatValidationError converts technical validation errors to user-friendly messages.
func formatValidationError(rawError string) string {
	// Common patterns from gojsonschema:
	// "(root): field is required" -> "Missing required field: field"
	// "(root): Additional property x is not allowed" -> "Unexpected field: x (not allowed by schema)"
	// "field: Invalid type. Expected: string, given: number" -> "Field 'field': expected string, got number"

	if strings.Contains(rawError, "is required") {
		parts := strings.SplitN(rawError, ": ", 2)
		if len(parts) == 2 {
			fieldPart := parts[1]
			fieldName := strings.TrimSuffix(fieldPart, " is required")
			if strings.HasPrefix(parts[0], "(root).") {
				context := strings.TrimPrefix(parts[0], "(root).")
				return fmt.Sprintf("Missing required field: %s (in %s)", fieldName, context)
			}
			return fmt.Sprintf("Missing required field: %s", fieldName)
		}
	}

	if strings.Contains(rawError, "Additional property") {
		parts := strings.SplitN(rawError, "Additional property ", 2)
		if len(parts) == 2 {
			fieldPart := strings.TrimSuffix(parts[1], " is not allowed")
			return fmt.Sprintf("Unexpected field: %s (not allowed by schema)", fieldPart)
		}
	}

	if strings.Contains(rawError, "Invalid type") {
		parts := strings.SplitN(rawError, ": Invalid type. ", 2)
		if len(parts) == 2 {
			field := parts[0]
			if field == "(root)" {
				field = "root object"
			}
			typeInfo := strings.ReplaceAll(parts[1], "Expected: ", "expected ")
			typeInfo = strings.ReplaceAll(typeInfo, ", given: ", ", got ")
			return fmt.Sprintf("Field '%s': %s", field, typeInfo)
		}
	}

	if strings.Contains(rawError, "must be one of the following") {
		parts := strings.SplitN(rawError, ": ", 2)
		if len(parts) == 2 {
			field := parts[0]
			if field == "(root)" {
				field = "root value"
			}
			return fmt.Sprintf("Field '%s': %s", field, parts[1])
		}
	}

	if strings.HasPrefix(rawError, "(root): ") {
		return strings.TrimPrefix(rawError, "(root): ")
	}
	if strings.HasPrefix(rawError, "(root).") {
		return strings.TrimPrefix(rawError, "(root).")
	}

	return rawError
}

// ExtractJSON extracts JSON from a response that may be wrapped in various ways:
//  1. An SDK text wrapper: {"text": "...actual content..."}
//  2. Markdown code fences: ```json\n{...}\n```
//  3. Prose before/after the JSON object
//
// It returns the first valid JSON value found (the outermost object or array
// at that position), or the original string if none found.
func ExtractJSON(response string) string {
	response = strings.TrimSpace(response)
	response = unwrapTextWrapper(response)

	if extracted := extractFromCodeFence(response); extracted != "" {
		return extracted
	}

	firstBrace := strings.Index(response, "{")
	firstBracket := strings.Index(response, "[")

	if firstBrace != -1 && (firstBracket == -1 || firstBrace < firstBracket) {
		if extracted := extractJSONObject(response); extracted != "" {
			return extracted
		}
		if extracted := extractJSONArray(response); extracted != "" {
			return extracted
		}
	} else if firstBracket != -1 {
		if extracted := extractJSONArray(response); extracted != "" {
			return extracted
		}
		if extracted := extractJSONObject(response); extracted != "" {
			return extracted
		}
	}

	return response
}

// unwrapTextWrapper checks if the response is wrapped in {"text": "..."} and extracts the inner content.
func unwrapTextWrapper(response string) string {
	if !strings.HasPrefix(response, "{") {
		return response
	}

	var wrapper struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(response), &wrapper); err != nil {
		return response
	}

	if wrapper.Text != "" {
		var generic map[string]interface{}
		if err := json.Unmarshal([]byte(response), &generic); err == nil {
			if len(generic) == 1 {
				if _, hasText := generic["text"]; hasText {
					return strings.TrimSpace(wrapper.Text)
				}
			}
		}
	}

	return response
}

// extractFromCodeFence extracts JSON from markdown code fences like ```json\n{...}\n```
func extractFromCodeFence(response string) string {
	patterns := []string{"```json\n", "```json\r\n", "```\n{", "```\r\n{"}

	for _, pattern := range patterns {
		startIdx := strings.Index(response, pattern)
		if startIdx == -1 {
			continue
		}

		contentStart := startIdx + len(pattern)
		if strings.HasSuffix(pattern, "{") {
			contentStart-- // include the opening brace
		}

		remaining := response[contentStart:]
		endIdx := strings.Index(remaining, "```")
		if endIdx == -1 {
			continue
		}

		content := strings.TrimSpace(remaining[:endIdx])

		var js json.RawMessage
		if json.Unmarshal([]byte(content), &js) == nil {
			return content
		}
	}

	return ""
}

// extractJSONObject finds the first valid JSON object in the response.
func extractJSONObject(response string) string {
	firstBrace := strings.Index(response, "{")
	if firstBrace == -1 {
		return ""
	}

	lastBrace := strings.LastIndex(response, "}")
	if lastBrace == -1 || lastBrace <= firstBrace {
		return ""
	}

	candidate := response[firstBrace : lastBrace+1]
	var js json.RawMessage
	if json.Unmarshal([]byte(candidate), &js) == nil {
		return candidate
	}

	for i := firstBrace; i < len(response); i++ {
		if response[i] == '}' {
			candidate := response[firstBrace : i+1]
			if json.Unmarshal([]byte(candidate), &js) == nil {
				return candidate
			}
		}
	}

	return ""
}

// extractJSONArray finds the first valid JSON array in the response.
func extractJSONArray(response string) string {
	firstBracket := strings.Index(response, "[")
	if firstBracket == -1 {
		return ""
	}

	lastBracket := strings.LastIndex(response, "]")
	if lastBracket == -1 || lastBracket <= firstBracket {
		return ""
	}

	candidate := response[firstBracket : lastBracket+1]
	var js json.RawMessage
	if json.Unmarshal([]byte(candidate), &js) == nil {
		return candidate
	}

	for i := firstBracket; i < len(response); i++ {
		if response[i] == ']' {
			candidate := response[firstBracket : i+1]
			if json.Unmarshal([]byte(candidate), &js) == nil {
				return candidate
			}
		}
	}

	return ""
}
