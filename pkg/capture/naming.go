package capture

import (
	"regexp"
	"strings"
)

var (
	schemePattern = regexp.MustCompile(`^https?://`)
	unsafeChars   = regexp.MustCompile(`[^a-zA-Z0-9.]`)
)

// EnsureProtocol prefixes https:// to a URL that does not start with http:// or https://.
func EnsureProtocol(rawURL string) string {
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		return rawURL
	}
	return "https://" + rawURL
}

// Sanitize turns a URL into a file base name: the scheme is dropped and every character
// outside [a-zA-Z0-9.] becomes an underscore.
func Sanitize(rawURL string) string {
	return unsafeChars.ReplaceAllString(schemePattern.ReplaceAllString(rawURL, ""), "_")
}
