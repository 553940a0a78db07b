package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// foldKey is the case-insensitive identity used for every dedupe in this package.
// Casers are stateful, so one is built per call.
func foldKey(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

func cleanText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// decodeEmbedded turns a JSON-encoded string field back into its value. Any other
// input is returned as is.
func decodeEmbedded(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return v
	}
	if (trimmed[0] == '[' && trimmed[len(trimmed)-1] == ']') || (trimmed[0] == '{' && trimmed[len(trimmed)-1] == '}') {
		var out any
		if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
			return out
		}
	}
	return v
}

func asMap(v any) (map[string]any, bool) {
	m, ok := decodeEmbedded(v).(map[string]any)
	return m, ok
}

func asSlice(v any) []any {
	switch t := decodeEmbedded(v).(type) {
	case []any:
		return t
	case []map[string]any:
		out := make([]any, 0, len(t))
		for _, m := range t {
			out = append(out, m)
		}
		return out
	case []string:
		out := make([]any, 0, len(t))
		for _, s := range t {
			out = append(out, s)
		}
		return out
	default:
		return nil
	}
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return cleanText(t)
	case json.Number:
		return t.String()
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

// firstString returns the first non-blank string among keys, in order.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := stringOf(m[k]); s != "" {
			return s
		}
	}
	return ""
}

// parseNumber accepts numbers and numeric strings with either a dot or a comma as
// decimal separator. Non-finite results are rejected.
func parseNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if strings.Contains(s, ",") {
			if strings.Contains(s, ".") {
				s = strings.ReplaceAll(s, ",", "")
			} else {
				s = strings.Replace(s, ",", ".", 1)
			}
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func positiveInt(v any) (int, bool) {
	f, ok := parseNumber(v)
	if !ok || f < 1 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func positiveFloat(v any) *float64 {
	for _, candidate := range []any{v, priceDigits(v)} {
		if f, ok := parseNumber(candidate); ok && f > 0 {
			return &f
		}
	}
	return nil
}

// priceDigits pulls the leading amount out of strings like "1 200 kr".
func priceDigits(v any) any {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case (r == '.' || r == ',') && b.Len() > 0:
			b.WriteRune(r)
		case unicode.IsSpace(r) && b.Len() > 0:
		default:
			if b.Len() > 0 {
				return b.String()
			}
		}
	}
	return b.String()
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
