package http

import (
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/smlier739/copytrip-backend-sub000/internal/logging"
)

const (
	requestBodyLogKey  = "http.request.body.summary"
	responseBodyLogKey = "http.response.body.summary"
	maxLoggedBody      = 2048
	redactedValue      = "redacted"
)

var sensitiveKeyParts = []string{"password", "token", "secret", "authorization", "api_key", "apikey"}

func registerLogging(e *echo.Echo, log *logging.Logger) {
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			userID := "anonymous"
			if viewer, ok := CurrentViewer(c); ok {
				userID = viewer.UserID.String()
			}

			kv := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"user_id", userID,
			}
			if summary := c.Get(requestBodyLogKey); summary != nil {
				kv = append(kv, "request_body", summary)
			}
			if summary := c.Get(responseBodyLogKey); summary != nil {
				kv = append(kv, "response_body", summary)
			}
			if v.Error != nil {
				kv = append(kv, "error", v.Error.Error())
			}

			switch {
			case v.Status >= 500:
				log.Error("http request", kv...)
			case v.Status >= 400:
				log.Warn("http request", kv...)
			default:
				log.Info("http request", kv...)
			}
			return nil
		},
	}))

	e.Use(middleware.BodyDump(func(c echo.Context, reqBody, resBody []byte) {
		if summary := sanitizeBody(reqBody, c.Request().Header.Get(echo.HeaderContentType)); summary != nil {
			c.Set(requestBodyLogKey, summary)
		}
		if summary := sanitizeBody(resBody, c.Response().Header().Get(echo.HeaderContentType)); summary != nil {
			c.Set(responseBodyLogKey, summary)
		}
	}))
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

func sanitizeBody(body []byte, contentType string) any {
	if len(body) == 0 {
		return nil
	}
	loweredType := strings.ToLower(strings.TrimSpace(contentType))

	if strings.HasPrefix(loweredType, "application/json") || json.Valid(body) {
		var data any
		if err := json.Unmarshal(body, &data); err == nil {
			return limitJSONSize(sanitizeJSON(data, ""))
		}
	}

	if strings.HasPrefix(loweredType, "application/x-www-form-urlencoded") {
		if values, err := url.ParseQuery(string(body)); err == nil && len(values) > 0 {
			sanitized := make(map[string]any, len(values))
			for key, vals := range values {
				if isSensitiveKey(key) {
					sanitized[key] = redactedValue
					continue
				}
				sanitized[key] = clampString(strings.Join(vals, ","))
			}
			return limitJSONSize(sanitized)
		}
	}

	if containsBinaryBytes(body) {
		return "binary"
	}
	return clampString(string(body))
}

func limitJSONSize(value any) any {
	if value == nil {
		return nil
	}
	buf, err := json.Marshal(value)
	if err != nil || len(buf) <= maxLoggedBody {
		return value
	}
	return map[string]any{
		"_truncated": true,
		"_preview":   summarizeJSONPreview(value, 0),
	}
}

func sanitizeJSON(value any, keyHint string) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			if isSensitiveKey(key) {
				result[key] = redactedValue
				continue
			}
			result[key] = sanitizeJSON(val, key)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = sanitizeJSON(item, keyHint)
		}
		return result
	case string:
		if containsBinaryBytes([]byte(v)) {
			return "binary"
		}
		return clampString(v)
	default:
		return v
	}
}

// summarizeJSONPreview keeps the first keys and items of a large body, so trips
// with long stop lists still log their shape.
func summarizeJSONPreview(value any, depth int) any {
	const (
		maxDepth         = 3
		maxMapEntries    = 6
		maxArraySamples  = 2
		maxStringPreview = 256
	)
	if depth >= maxDepth {
		return "...(omitted)..."
	}

	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		result := make(map[string]any, maxMapEntries+1)
		for i, key := range keys {
			if i == maxMapEntries {
				result["_omitted_fields"] = len(keys) - i
				break
			}
			result[key] = summarizeJSONPreview(v[key], depth+1)
		}
		return result
	case []any:
		out := map[string]any{"_total_items": len(v)}
		sample := make([]any, 0, maxArraySamples)
		for i := 0; i < len(v) && i < maxArraySamples; i++ {
			sample = append(sample, summarizeJSONPreview(v[i], depth+1))
		}
		if len(sample) > 0 {
			out["_sample"] = sample
		}
		return out
	case string:
		if len(v) <= maxStringPreview {
			return v
		}
		return truncateUTF8(v, maxStringPreview) + "...(truncated)"
	default:
		return v
	}
}

func containsBinaryBytes(data []byte) bool {
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			return true
		}
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return true
		}
		data = data[size:]
	}
	return false
}

func clampString(value string) string {
	if len(value) <= maxLoggedBody {
		return value
	}
	return truncateUTF8(value, maxLoggedBody) + "...(truncated)"
}

func truncateUTF8(value string, n int) string {
	truncated := value[:n]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated
}
