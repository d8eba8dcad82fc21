package server

import (
	"strconv"
	"strings"
)

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseOptionalInt(value string) (*int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// flag reads a boolean query parameter; anything unparsable is an error so
// a typo in ?async= never silently runs inline.
func flag(value, name string) (bool, error) {
	parsed, err := parseOptionalBool(value)
	if err != nil {
		return false, newValidationError(name, "invalid_"+name, "must be true or false")
	}
	if parsed == nil {
		return false, nil
	}
	return *parsed, nil
}
