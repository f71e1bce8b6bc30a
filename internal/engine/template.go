package engine

import (
	"regexp"
	"strconv"
	"strings"

	"floorwatch/internal/domain"
)

// placeholderPattern matches {field.path} tokens in rule name/description.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_][A-Za-z0-9_.]*)\}`)

// ExpandPlaceholders substitutes {field.path} tokens with event values.
// Params: template string from the rule and triggering event.
// Returns: expanded string. Unresolved placeholders are left verbatim.
func ExpandPlaceholders(template string, event domain.Event) string {
	if !strings.Contains(template, "{") {
		return template
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		path := token[1 : len(token)-1]
		value, ok := event.ValueAt(path)
		if !ok {
			return token
		}
		return formatValue(value, token)
	})
}

// formatValue renders one payload value for message embedding.
// Params: raw payload value and fallback token.
// Returns: compact string form, or the token for unsupported types.
func formatValue(value any, token string) string {
	switch typed := value.(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return token
	}
}
