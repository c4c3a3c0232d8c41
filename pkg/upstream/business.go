package upstream

import (
	"encoding/json"
	"strings"
)

// IsBusinessError reports whether a well-formed payload signals failure
// through its own fields: a non-empty "error", a non-zero "retcode", or a
// failing "status" (false, "error"/"fail"/"failed", or a number >= 400).
func IsBusinessError(payload any) bool {
	doc, ok := payload.(map[string]any)
	if !ok {
		return false
	}

	if v, ok := doc["error"]; ok {
		switch e := v.(type) {
		case string:
			if e != "" {
				return true
			}
		case bool:
			if e {
				return true
			}
		}
	}

	if v, ok := doc["retcode"]; ok {
		if n, isNum := number(v); isNum && n != 0 {
			return true
		}
	}

	if v, ok := doc["status"]; ok {
		switch s := v.(type) {
		case bool:
			return !s
		case string:
			switch strings.ToLower(s) {
			case "error", "fail", "failed":
				return true
			}
		default:
			if n, isNum := number(v); isNum && n >= 400 {
				return true
			}
		}
	}

	return false
}

// HasData reports whether a payload carries a body: the "data" field must
// be non-null when present, otherwise the object itself must be non-empty.
func HasData(payload any) bool {
	switch doc := payload.(type) {
	case nil:
		return false
	case map[string]any:
		if data, ok := doc["data"]; ok {
			return data != nil
		}
		return len(doc) > 0
	default:
		return true
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
