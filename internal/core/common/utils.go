package common

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON cleans and unmarshals a JSON string into a type T.
// It handles common LLM quirks like markdown fences or extra text around the
// payload. Both objects and top-level arrays are accepted.
func ParseJSON[T any](response string) (T, error) {
	var zero T
	jsonStr := strings.TrimSpace(response)
	jsonStr = strings.ReplaceAll(jsonStr, "```json", "")
	jsonStr = strings.ReplaceAll(jsonStr, "```", "")

	start := strings.IndexAny(jsonStr, "{[")
	if start == -1 {
		return zero, fmt.Errorf("no JSON object found in response (missing '{')")
	}
	closer := "}"
	if jsonStr[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(jsonStr, closer)
	if end < start {
		return zero, fmt.Errorf("no JSON object found in response (missing '%s')", closer)
	}
	jsonStr = jsonStr[start : end+1]

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w\nData: %s", err, jsonStr)
	}

	return result, nil
}

// ParseList reads a list either from a bare array or from the named field of
// an envelope object such as {"hooks": [...]}. When the named field is absent
// the first array-valued field is used.
func ParseList[T any](response, key string) ([]T, error) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(response, "```json", ""))
	trimmed = strings.TrimPrefix(trimmed, "```")
	if strings.HasPrefix(strings.TrimSpace(trimmed), "[") {
		return ParseJSON[[]T](trimmed)
	}

	env, err := ParseJSON[map[string]json.RawMessage](response)
	if err != nil {
		return nil, err
	}
	if raw, ok := env[key]; ok {
		var out []T
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %q: %w", key, err)
		}
		return out, nil
	}
	for _, raw := range env {
		var out []T
		if json.Unmarshal(raw, &out) == nil {
			return out, nil
		}
	}
	return nil, fmt.Errorf("no list field %q in response", key)
}
