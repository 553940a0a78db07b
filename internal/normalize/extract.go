package normalize

import (
	"encoding/json"
	"strings"
)

// ExtractJSONObject locates the outermost JSON object in model output that may be
// wrapped in markdown fences or surrounded by prose.
func ExtractJSONObject(text string) (string, bool) {
	cleaned := strings.TrimSpace(text)
	for _, fence := range []string{"```json", "```JSON", "```"} {
		cleaned = strings.ReplaceAll(cleaned, fence, "")
	}
	cleaned = strings.TrimSpace(cleaned)

	for start := strings.Index(cleaned, "{"); start != -1; {
		if candidate, ok := balancedObject(cleaned, start); ok {
			return candidate, true
		}
		next := strings.Index(cleaned[start+1:], "{")
		if next == -1 {
			break
		}
		start += next + 1
	}
	return "", false
}

// balancedObject scans one brace-balanced object starting at start. An object
// that never closes falls back to the widest brace pair.
func balancedObject(cleaned string, start int) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(cleaned); i++ {
		ch := cleaned[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := cleaned[start : i+1]
				return candidate, json.Valid([]byte(candidate))
			}
		}
	}

	end := strings.LastIndex(cleaned, "}")
	if end > start {
		candidate := cleaned[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}
	return "", false
}

// decodePayload accepts raw model text, JSON bytes, or already-decoded values and
// returns the trip object, unwrapping a top-level "trip" key.
func decodePayload(raw any) (map[string]any, bool) {
	var obj map[string]any
	switch v := raw.(type) {
	case nil:
		return nil, false
	case map[string]any:
		obj = v
	case []byte:
		return decodePayload(string(v))
	case json.RawMessage:
		return decodePayload(string(v))
	case string:
		candidate, ok := ExtractJSONObject(v)
		if !ok {
			return nil, false
		}
		if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
			return nil, false
		}
	default:
		return nil, false
	}

	if inner, ok := asMap(obj["trip"]); ok {
		return inner, true
	}
	return obj, true
}
