package document

import (
	"regexp"
	"strings"
)

// Replacement rules applied in order by SanitizeFilename.
var sanitizeRules = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`( *)_( *)`), "$1 $2"},    // underscore → space
	{regexp.MustCompile(`( *)[:]( *)`), " - "},    // colon → hyphen
	{regexp.MustCompile(` +`), " "},               // collapse runs of spaces
	{regexp.MustCompile(`[^\p{L}\p{N}_\- ]`), ""}, // drop anything else unsafe
}

// SanitizeFilename converts an arbitrary title or channel name into a string
// safe for use as a file or directory name on common filesystems.
//
//	SanitizeFilename("Hello: World!") == "Hello - World"
func SanitizeFilename(s string) string {
	for _, rule := range sanitizeRules {
		s = rule.pattern.ReplaceAllString(s, rule.repl)
	}
	return strings.TrimSpace(s)
}
