// Package projector maps backend payloads to display state. Every accessor is
// defensive: missing or malformed fields become zero values, never errors.
package projector

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Number reads v as a float64. JSON numbers and numeric strings are accepted;
// anything else, NaN and infinities read as 0.
func Number(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		f, _ = n.Float64()
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Int reads v as a rounded integer.
func Int(v any) int {
	return int(math.Round(Number(v)))
}

// Int64 reads v as a rounded 64-bit integer (byte sizes).
func Int64(v any) int64 {
	return int64(math.Round(Number(v)))
}

// String reads v as text. Numbers are rendered without trailing zeros.
func String(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64, float32, int, int64, json.Number:
		return FormatNumber(Number(s))
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

// StringOr returns String(v), or def when that is empty.
func StringOr(v any, def string) string {
	if s := String(v); s != "" {
		return s
	}
	return def
}

// Bool reads v as a boolean. Non-zero numbers and "true" are true.
func Bool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		ok, _ := strconv.ParseBool(strings.TrimSpace(b))
		return ok
	}
	return Number(v) != 0
}

// Object reads v as a JSON object, or nil.
func Object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// List reads v as a JSON array, or nil.
func List(v any) []any {
	l, _ := v.([]any)
	return l
}

// Strings reads v as an array of strings, skipping non-string entries.
func Strings(v any) []string {
	var out []string
	for _, item := range List(v) {
		if s := String(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Timestamp parses the backend's ISO-8601 timestamps, with or without zone.
func Timestamp(v any) (time.Time, bool) {
	s := strings.TrimSpace(String(v))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func success(env map[string]any) bool {
	return Bool(env["success"])
}
