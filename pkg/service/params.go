package service

import "fmt"

// stringParam reads a string-typed param; non-string values are
// treated as absent.
func stringParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// requireString reads a mandatory string param.
func requireString(params map[string]any, key string) (string, error) {
	s, ok := stringParam(params, key)
	if !ok || s == "" {
		return "", fmt.Errorf("missing %q parameter", key)
	}
	return s, nil
}

// boolParam reads a bool-typed param with a default.
func boolParam(params map[string]any, key string, def bool) bool {
	v, ok := params[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// floatParam reads a numeric param. JSON numbers decode as float64.
func floatParam(params map[string]any, key string) (float64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// stringSliceParam reads an array-of-strings param; non-string entries
// are skipped.
func stringSliceParam(params map[string]any, key string) []string {
	v, ok := params[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// sessionID extracts the target session from params. "session_id" wins
// over the "session" alias; non-string values are ignored, leaving the
// default session selected.
func sessionID(params map[string]any) string {
	if id, ok := stringParam(params, "session_id"); ok {
		return id
	}
	if id, ok := stringParam(params, "session"); ok {
		return id
	}
	return ""
}
