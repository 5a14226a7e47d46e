package gateway

import (
	"regexp"
	"strings"
)

var numbered = regexp.MustCompile(`^\s*\d+\.\s*`)

// ParseQuestions extracts the items of a numbered list, one per line. Lines
// without a leading "N." are dropped, as are items that are empty once the
// number is stripped.
func ParseQuestions(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		loc := numbered.FindStringIndex(line)
		if loc == nil {
			continue
		}
		if q := strings.TrimSpace(line[loc[1]:]); q != "" {
			out = append(out, q)
		}
	}
	return out
}
