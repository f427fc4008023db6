package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/learning-platform/pkg/logger"
)

const (
	filteredValue  = "[FILTERED]"
	maxLoggedBytes = 4 << 10
)

// Keys are matched by substring, lower-cased.
var sensitiveFields = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"key",
	"session",
	"credential",
	"auth",
	"signature",
	"cookie",
}

// Bodies on these paths are never logged.
var unloggedPrefixes = []string{"/swagger", "/openapi.yml"}

// LoggingMiddleware logs one line per request and one per response. Bodies are masked and truncated.
func LoggingMiddleware(base *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			lg := base
			if middleware.GetReqID(r.Context()) != "" {
				lg = logger.From(r.Context())
			}

			withBody := shouldLogBody(r.URL.Path)

			reqAttrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", filterSensitiveHeaders(r.Header),
			}
			if withBody {
				reqAttrs = append(reqAttrs, "body", filterSensitiveBody(peekBody(r)))
			}
			lg.Info("incoming request", reqAttrs...)

			var captured bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			if withBody {
				ww.Tee(&captured)
			}

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			respAttrs := []any{
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", ww.BytesWritten(),
			}
			if withBody {
				respAttrs = append(respAttrs, "body", filterSensitiveBody(captured.Bytes()))
			}
			lg.Log(r.Context(), levelFor(status), "response", respAttrs...)
		})
	}
}

// peekBody reads the request body and puts an identical reader back for the handler.
func peekBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	body, err := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	return body
}

func shouldLogBody(path string) bool {
	for _, prefix := range unloggedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func isSensitive(name string) bool {
	name = strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(name, field) {
			return true
		}
	}
	return false
}

func filterSensitiveHeaders(headers http.Header) map[string]string {
	filtered := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			filtered[name] = filteredValue
			continue
		}
		filtered[name] = strings.Join(values, ", ")
	}
	return filtered
}

// filterSensitiveBody masks sensitive keys of a JSON body at any depth.
// Non-JSON bodies are dropped entirely when they mention a sensitive word.
func filterSensitiveBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		if isSensitive(string(body)) {
			return filteredValue
		}
		return truncate(string(body))
	}

	masked, err := json.Marshal(maskJSON(data))
	if err != nil {
		return filteredValue
	}
	return truncate(string(masked))
}

func maskJSON(data any) any {
	switch v := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			if isSensitive(key) {
				out[key] = filteredValue
				continue
			}
			out[key] = maskJSON(value)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = maskJSON(item)
		}
		return out
	default:
		return v
	}
}

func truncate(s string) string {
	if len(s) <= maxLoggedBytes {
		return s
	}
	return s[:maxLoggedBytes] + "...(truncated)"
}
