package pricing

import (
	"strings"
	"unicode"
)

// normalizeAmount trims whitespace and a trailing currency word, and turns a
// decimal comma into a point ("5,50 rub" -> "5.50").
func normalizeAmount(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 2 && !strings.ContainsFunc(fields[1], unicode.IsDigit) {
		fields = fields[:1]
	}
	return strings.ReplaceAll(strings.Join(fields, ""), ",", ".")
}
