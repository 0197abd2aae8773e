package common

import (
	"fmt"
	"strings"
)

// Argument names shared by several tools.
const (
	ArgEmailID  = "email_id"
	ArgFeedback = "feedback"
	ArgDraft    = "draft"
	ArgQuery    = "query"
	ArgLimit    = "limit"
)

// MessageIDFromArgs returns the single message id argument, or "" when it is
// absent or not a plain string.
func MessageIDFromArgs(args map[string]interface{}) string {
	id, _ := args[ArgEmailID].(string)
	return strings.TrimSpace(id)
}

// RequiredString returns a non-blank string argument.
func RequiredString(args map[string]interface{}, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return v, nil
}

// OptionalString returns a string argument or "" when it is absent.
func OptionalString(args map[string]interface{}, name string) string {
	v, _ := args[name].(string)
	return v
}

// OptionalInt returns a numeric argument, or def when it is absent. JSON
// numbers arrive as float64.
func OptionalInt(args map[string]interface{}, name string, def int) (int, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("%s must be a number", name)
	}
}
