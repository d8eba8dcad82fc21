package domain

import (
	"regexp"
	"strconv"
	"strings"
)

var legacySavedPattern = regexp.MustCompile(`(?i)\+\s*Rp\.?\s*([\d.,]+)\s*ke\s+saldo`)

// ParseLegacySaved extracts the saved-to-balance amounts embedded in an old
// payment description such as "Lunas: Januari 2025 (+Rp 12.000 ke saldo)".
func ParseLegacySaved(description string) int64 {
	var total int64
	for _, match := range legacySavedPattern.FindAllStringSubmatch(description, -1) {
		digits := strings.NewReplacer(".", "", ",", "").Replace(match[1])
		amount, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			continue
		}
		total += amount
	}
	return total
}
