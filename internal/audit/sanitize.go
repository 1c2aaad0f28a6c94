package audit

import (
	"encoding/json"
	"strings"
)

// sensitiveKeys are dropped from snapshots regardless of nesting depth.
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"passwordhash":  {},
	"password_hash": {},
	"token":         {},
	"tokenhash":     {},
	"token_hash":    {},
}

// Snapshot converts v to a sanitized map using its JSON representation.
// It returns nil when v is nil or does not encode to a JSON object.
func Snapshot(v any) map[string]any {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return Sanitize(out)
}

// Sanitize returns a copy of data without sensitive fields.
func Sanitize(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		if isSensitive(k) {
			continue
		}
		switch nested := v.(type) {
		case map[string]any:
			out[k] = Sanitize(nested)
		case []any:
			out[k] = sanitizeSlice(nested)
		default:
			out[k] = v
		}
	}
	return out
}

// With returns a copy of snapshot with extra fields merged in.
func With(snapshot map[string]any, extra map[string]any) map[string]any {
	if snapshot == nil {
		return nil
	}
	out := make(map[string]any, len(snapshot)+len(extra))
	for k, v := range snapshot {
		out[k] = v
	}
	for k, v := range extra {
		if isSensitive(k) {
			continue
		}
		out[k] = v
	}
	return out
}

func sanitizeSlice(items []any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		if m, ok := item.(map[string]any); ok {
			out[i] = Sanitize(m)
			continue
		}
		out[i] = item
	}
	return out
}

func isSensitive(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}
