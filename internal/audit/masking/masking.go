package masking

import "strings"

const maskToken = "****"

// sensitiveKeys are metadata keys whose values identify a person.
var sensitiveKeys = map[string]struct{}{
	"phone":   {},
	"address": {},
}

// MaskPhone keeps the last three digits of a phone number.
func MaskPhone(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 3 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-3:]
}

// MaskMetadata returns a copy of input with personal fields masked. Nested
// maps are walked.
func MaskMetadata(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if nested, ok := value.(map[string]any); ok {
			masked[key] = MaskMetadata(nested)
			continue
		}
		if _, sensitive := sensitiveKeys[key]; sensitive {
			if s, ok := value.(string); ok {
				masked[key] = MaskPhone(s)
				continue
			}
		}
		masked[key] = value
	}
	return masked
}
