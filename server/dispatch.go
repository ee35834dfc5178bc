/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package server

import "encoding/json"

// truncateEmptyLeaves strips nil, "", empty slices, and empty maps from a
// parameter object before it is forwarded downstream. It is idempotent:
// running it twice on its own output is a no-op.
func truncateEmptyLeaves(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		if isEmptyLeaf(v) {
			continue
		}
		if nested, ok := v.(map[string]interface{}); ok {
			v = truncateEmptyLeaves(nested)
			if isEmptyLeaf(v) {
				continue
			}
		}
		out[k] = v
	}
	return out
}

func isEmptyLeaf(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []interface{}:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	default:
		return false
	}
}

// decodeJSONField parses a tool parameter that is declared as a JSON-
// encoded string (arrays and objects have no first-class mcp-go parameter
// type) into its native Go value. An empty or unparsable string yields nil
// rather than an error - malformed structured parameters are simply dropped
// by truncateEmptyLeaves instead of failing the whole call.
func decodeJSONField(raw string) interface{} {
	if raw == "" {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil
	}
	return v
}

// decodeStringSlice parses a tool parameter that is declared as a JSON array
// of strings, returning nil if raw is empty, unparsable, or not a JSON array.
// Array items that are not strings are skipped.
func decodeStringSlice(raw string) []string {
	v := decodeJSONField(raw)
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
