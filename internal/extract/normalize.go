package extract

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reBlanks     = regexp.MustCompile(`[ \t]+`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
)

// Normalize collapses runs of spaces and tabs, unifies line endings and keeps
// at most one blank line between paragraphs. Digits are left untouched so
// amounts survive verbatim.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reBlanks.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	s = strings.Join(lines, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
