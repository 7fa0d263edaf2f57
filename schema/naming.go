package schema

import (
	"strings"
	"unicode"

	pluralizer "github.com/gertd/go-pluralize"
)

// pluralizeClient is shared; the pluralizer keeps its rule tables per client.
var pluralizeClient = pluralizer.NewClient()

// =========================================================================
// Naming
// =========================================================================

// ColumnName converts a field name to the snake_case column name used when a
// field carries no explicit name annotation.
//
//	ColumnName("firstName") // "first_name"
//	ColumnName("HTTPCode")  // "http_code"
//	ColumnName("value")     // "value"
func ColumnName(fieldName string) string {
	return toSnakeCase(fieldName)
}

// TableName derives the default table name of a type: snake_case and plural.
//
//	TableName("Student")    // "students"
//	TableName("BlogPost")   // "blog_posts"
//	TableName("person")     // "people"
func TableName(typeName string) string {
	snake := toSnakeCase(typeName)
	if snake == "" {
		return ""
	}
	// only the last word is pluralized
	idx := strings.LastIndexByte(snake, '_')
	return snake[:idx+1] + pluralize(snake[idx+1:])
}

// JoinName prefixes a nested column name with the name of its parent field.
func JoinName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}

// toSnakeCase converts any naming convention to snake_case.
// Handles acronyms and digits: "userID" -> "user_id", "OAuth2Token" -> "o_auth2_token".
func toSnakeCase(name string) string {
	if name == "" {
		return ""
	}

	// already snake_case
	if !hasUpperCase(name) {
		return name
	}

	var result strings.Builder
	result.Grow(len(name) + 4)

	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			// aB -> a_b, a1B -> a1_b, ABc -> a_bc
			if unicode.IsLower(prev) || unicode.IsDigit(prev) ||
				(unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])) {
				if prev != '_' {
					result.WriteByte('_')
				}
			}
		}
		result.WriteRune(unicode.ToLower(r))
	}

	return result.String()
}

// pluralize converts a singular noun to its plural form.
func pluralize(name string) string {
	if name == "" {
		return ""
	}
	return preserveCase(name, pluralizeClient.Plural(name))
}

// hasUpperCase returns true if the string contains any uppercase letters.
func hasUpperCase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// preserveCase preserves the case pattern of the original string in the result.
func preserveCase(original, result string) string {
	if original == "" || result == "" {
		return result
	}
	if strings.ToLower(original) == original {
		return strings.ToLower(result)
	}
	if strings.ToUpper(original) == original {
		return strings.ToUpper(result)
	}
	return result
}
