package gemini

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON strips Markdown code fences around a JSON payload.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

// parseKeywords accepts a JSON array or a comma or newline separated list.
// Duplicates are dropped case-insensitively, keeping the first spelling.
func parseKeywords(raw string) []string {
	cleaned := extractJSON(raw)

	var items []string
	var list []any
	if strings.HasPrefix(cleaned, "[") && json.Unmarshal([]byte(cleaned), &list) == nil {
		for _, item := range list {
			items = append(items, coerceString(item))
		}
	} else {
		items = strings.FieldsFunc(cleaned, func(r rune) bool {
			return r == ',' || r == '\n' || r == ';'
		})
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		item = strings.TrimLeft(item, "-*• ")
		item = strings.Trim(item, `"'`)
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

// parseProfile decodes a refined profile object. A payload wrapped in a
// top-level "profile" key is unwrapped.
func parseProfile(raw string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	if inner, ok := data["profile"].(map[string]any); ok {
		if _, hasSkills := data["skills"]; !hasSkills {
			return inner, nil
		}
	}
	return data, nil
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
