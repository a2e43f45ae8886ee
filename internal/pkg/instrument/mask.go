package instrument

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// MaskKeys normalizes field names for MaskData lookups.
func MaskKeys(fields []string) map[string]struct{} {
	keys := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			keys[f] = struct{}{}
		}
	}
	return keys
}

// MaskData walks decoded JSON and replaces values of masked keys with "***".
func MaskData(v any, keys map[string]struct{}) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if _, hit := keys[strings.ToLower(k)]; hit {
				out[k] = "***"
				continue
			}
			out[k] = MaskData(inner, keys)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = inner
		}
		return MaskData(out, keys)
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = MaskData(inner, keys)
		}
		return out
	default:
		return v
	}
}

func maskJSON(raw []byte, keys map[string]struct{}) (string, bool) {
	if len(raw) == 0 || (raw[0] != '{' && raw[0] != '[') {
		return "", false
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", false
	}
	out, err := json.Marshal(MaskData(decoded, keys))
	if err != nil {
		return "", false
	}
	return string(out), true
}

func maskAttr(attr slog.Attr, keys map[string]struct{}) slog.Attr {
	if _, hit := keys[strings.ToLower(attr.Key)]; hit {
		return slog.String(attr.Key, "***")
	}

	switch attr.Value.Kind() {
	case slog.KindGroup:
		group := attr.Value.Group()
		masked := make([]slog.Attr, len(group))
		for i, ga := range group {
			masked[i] = maskAttr(ga, keys)
		}
		attr.Value = slog.GroupValue(masked...)
	case slog.KindString:
		if s, ok := maskJSON([]byte(attr.Value.String()), keys); ok {
			attr.Value = slog.StringValue(s)
		}
	case slog.KindAny:
		switch v := attr.Value.Any().(type) {
		case map[string]any, map[string]string, []any:
			attr.Value = slog.AnyValue(MaskData(v, keys))
		case []byte:
			if s, ok := maskJSON(v, keys); ok {
				attr.Value = slog.StringValue(s)
			}
		}
	}
	return attr
}
