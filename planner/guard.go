package planner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/BaSui01/lexflow/types"
)

// Query length bounds applied after sanitization.
const (
	MinQueryLength = 3
	MaxQueryLength = 2000

	maxQueryLines = 10
)

// blockedPatterns screen out markup and template injection attempts before
// the query reaches any prompt.
var blockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)data:text/html`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`\{\{.*\}\}`),
	regexp.MustCompile(`\$\{.*\}`),
}

// Sanitize normalizes a raw query: trims, collapses runs of spaces, strips
// control characters, and caps the number of lines.
func Sanitize(query string) string {
	lines := strings.Split(query, "\n")
	if len(lines) > maxQueryLines {
		lines = lines[:maxQueryLines]
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		var b strings.Builder
		for _, r := range line {
			if r >= ' ' {
				b.WriteRune(r)
			}
		}
		line = strings.Join(strings.Fields(b.String()), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// ValidateQuery sanitizes and validates a raw query, returning the cleaned
// text. Length violations and blocked patterns return ErrInvalidQuery.
func ValidateQuery(query string) (string, error) {
	cleaned := Sanitize(query)

	if len(cleaned) < MinQueryLength {
		return cleaned, types.NewError(types.ErrInvalidQuery,
			fmt.Sprintf("query too short (min %d chars)", MinQueryLength))
	}
	if len(cleaned) > MaxQueryLength {
		return cleaned, types.NewError(types.ErrInvalidQuery,
			fmt.Sprintf("query too long (max %d chars)", MaxQueryLength))
	}

	for _, p := range blockedPatterns {
		if p.MatchString(cleaned) {
			return cleaned, types.NewError(types.ErrInvalidQuery, "query contains blocked content")
		}
	}
	return cleaned, nil
}
