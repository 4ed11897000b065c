package market

import (
	"encoding/json"
	"strconv"
)

func toMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func toSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

func stringFromAny(v any) string {
	s, _ := v.(string)
	return s
}

func floatFromAny(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}

func int64FromAny(v any) (int64, bool) {
	switch val := v.(type) {
	case float64:
		return int64(val), true
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		return n, err == nil
	case json.Number:
		n, err := val.Int64()
		return n, err == nil
	case int:
		return int64(val), true
	case int64:
		return val, true
	default:
		return 0, false
	}
}

func intFromAny(v any) (int, bool) {
	n, ok := int64FromAny(v)
	return int(n), ok
}
