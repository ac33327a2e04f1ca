package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// messageTokenRe matches provider channel framing such as
// "<|channel|>analysis<|message|>{...}" and captures everything after the
// last <|message|> marker.
var messageTokenRe = regexp.MustCompile(`<\|message\|>\s*([\s\S]*)$`)

// ExtractJSON extracts a single JSON object from raw LLM output using the
// salvage cascade: direct parse, fence stripping, special-token extraction,
// then greedy brace-balanced extraction. It returns the JSON text of the
// first object found, or an error if no strategy yields valid JSON.
func ExtractJSON(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", fmt.Errorf("empty content")
	}

	// Strategy 1: the content is already a JSON object.
	if json.Valid([]byte(trimmed)) && strings.HasPrefix(trimmed, "{") {
		return trimmed, nil
	}

	// Strategy 2: strip triple-backtick fences (```json ... ``` or ``` ... ```).
	if fenced := stripFences(trimmed); fenced != "" {
		if json.Valid([]byte(fenced)) && strings.HasPrefix(fenced, "{") {
			return fenced, nil
		}
		// A fenced block may itself carry prose around the object.
		trimmed = fenced
	}

	// Strategy 3: extract after a <|message|> channel marker.
	if m := messageTokenRe.FindStringSubmatch(trimmed); m != nil {
		candidate := strings.TrimSpace(m[1])
		if obj, ok := balancedObject(candidate); ok {
			return obj, nil
		}
	}

	// Strategy 4: greedy brace-balanced extraction from anywhere in the text.
	if obj, ok := balancedObject(trimmed); ok {
		return obj, nil
	}

	return "", fmt.Errorf("no JSON object found in content")
}

// Unmarshal runs the salvage cascade and decodes the extracted object.
func Unmarshal[T any](content string) (*T, error) {
	extracted, err := ExtractJSON(content)
	if err != nil {
		return nil, err
	}

	var result T
	if err := json.Unmarshal([]byte(extracted), &result); err != nil {
		return nil, fmt.Errorf("failed to parse extracted JSON: %w", err)
	}
	return &result, nil
}

// stripFences removes a leading ```json or ``` fence and its closing fence.
// Returns "" when the content is not fenced.
func stripFences(content string) string {
	if !strings.HasPrefix(content, "```") {
		return ""
	}

	body := strings.TrimPrefix(content, "```json")
	if body == content {
		body = strings.TrimPrefix(content, "```")
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}

// balancedObject scans for the first '{' and returns the shortest
// brace-balanced object starting there that parses as valid JSON. String
// literals and escapes are honored so braces inside strings do not
// terminate the scan.
func balancedObject(content string) (string, bool) {
	start := strings.Index(content, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(content); i++ {
		ch := content[i]

		if escaped {
			escaped = false
			continue
		}

		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					candidate := content[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					// Keep scanning from the next opening brace.
					rest := content[start+1:]
					if obj, ok := balancedObject(rest); ok {
						return obj, true
					}
					return "", false
				}
			}
		}
	}

	return "", false
}
