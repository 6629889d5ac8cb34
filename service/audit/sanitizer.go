// Package audit redacts secret-shaped content from structured values and
// appends sanitized transition records to the vault's Logs folder. Sanitize
// is the mandatory boundary before any value reaches a log or task file.
package audit

import (
	"reflect"
	"regexp"

	"github.com/viant/structology/visitor"
	"github.com/viant/toolbox"
)

const placeholder = "<redacted>"

// rule rewrites one credential-shaped text pattern. Replacements are fixed
// points of their own pattern, which keeps Sanitize idempotent.
type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

var rules = []rule{
	{
		pattern:     regexp.MustCompile(`(?i)\b(api[_-]?key|access[_-]?token|refresh[_-]?token|client[_-]?secret|key|password|passwd|secret|token|authorization|credential)\b\s*[=:]\s*\S+`),
		replacement: "$1=" + placeholder,
	},
	{
		pattern:     regexp.MustCompile(`(?i)\bbearer\s+\S+`),
		replacement: "bearer " + placeholder,
	},
}

// Sanitize returns a copy of value with every credential-shaped substring in
// string leaves replaced by a placeholder. Mappings and sequences are rebuilt
// with each leaf sanitized; structs are converted to mappings first; all
// other scalars pass through unchanged. Sanitize is pure and idempotent.
func Sanitize(value interface{}) interface{} {
	switch actual := value.(type) {
	case nil:
		return nil
	case string:
		return sanitizeText(actual)
	case map[string]interface{}:
		result := make(map[string]interface{}, len(actual))
		visit := visitor.MapVisitorOf[string, interface{}](actual)
		_ = visit(func(key string, element interface{}) (bool, error) {
			result[key] = Sanitize(element)
			return true, nil
		})
		return result
	case map[string]string:
		result := make(map[string]string, len(actual))
		for key, element := range actual {
			result[key] = sanitizeText(element)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(actual))
		for i, element := range actual {
			result[i] = Sanitize(element)
		}
		return result
	case []string:
		result := make([]string, len(actual))
		for i, element := range actual {
			result[i] = sanitizeText(element)
		}
		return result
	}

	if isStruct(value) {
		converted := map[string]interface{}{}
		if err := toolbox.DefaultConverter.AssignConverted(&converted, value); err == nil {
			return Sanitize(converted)
		}
	}
	return value
}

func sanitizeText(text string) string {
	for _, r := range rules {
		text = r.pattern.ReplaceAllString(text, r.replacement)
	}
	return text
}

func isStruct(value interface{}) bool {
	rType := reflect.TypeOf(value)
	if rType == nil {
		return false
	}
	if rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	return rType.Kind() == reflect.Struct
}
