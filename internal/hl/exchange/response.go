package exchange

import (
	"encoding/json"
	"errors"
	"fmt"
)

// RestingOrderID extracts the venue order id from a place acknowledgment
// (`statuses[0].resting.oid`). A venue-side rejection surfaces as an error
// carrying the venue's message.
func RestingOrderID(resp map[string]any) (int64, error) {
	status, err := firstStatus(resp)
	if err != nil {
		return 0, err
	}
	if msg, ok := status["error"].(string); ok {
		return 0, errors.New(msg)
	}
	for _, key := range []string{"resting", "filled"} {
		nested, ok := status[key].(map[string]any)
		if !ok {
			continue
		}
		if oid, ok := int64FromAny(nested["oid"]); ok {
			return oid, nil
		}
	}
	return 0, errors.New("order acknowledgment missing oid")
}

// ModifyAccepted reports whether a modify submission was accepted. The venue
// answers a bare status for modifies; "err" carries the reason in response.
func ModifyAccepted(resp map[string]any) (bool, string) {
	if resp == nil {
		return false, "empty response"
	}
	status, _ := resp["status"].(string)
	if status == "ok" {
		return true, ""
	}
	if reason, ok := resp["response"].(string); ok {
		return false, reason
	}
	return false, fmt.Sprintf("status %q", status)
}

func firstStatus(resp map[string]any) (map[string]any, error) {
	if resp == nil {
		return nil, errors.New("empty response")
	}
	if status, _ := resp["status"].(string); status != "ok" {
		if reason, ok := resp["response"].(string); ok {
			return nil, errors.New(reason)
		}
		return nil, fmt.Errorf("status %v", resp["status"])
	}
	response, ok := resp["response"].(map[string]any)
	if !ok {
		return nil, errors.New("response missing body")
	}
	data, ok := response["data"].(map[string]any)
	if !ok {
		return nil, errors.New("response missing data")
	}
	statuses, ok := data["statuses"].([]any)
	if !ok || len(statuses) == 0 {
		return nil, errors.New("response missing statuses")
	}
	first, ok := statuses[0].(map[string]any)
	if !ok {
		return nil, errors.New("malformed status entry")
	}
	return first, nil
}

func int64FromAny(v any) (int64, bool) {
	switch val := v.(type) {
	case float64:
		return int64(val), true
	case int64:
		return val, true
	case int:
		return int64(val), true
	case json.Number:
		n, err := val.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}
