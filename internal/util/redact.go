// Package util carries small cross-cutting helpers.
package util

import (
	"regexp"
	"strings"
)

var (
	// Bearer tokens leak into logs through HTTP error strings from
	// client libraries.
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// key=value spellings of the credentials this service handles.
	apiKeyKVRe = regexp.MustCompile(`(?i)\b(api[_-]?key|gemini[_-]?api[_-]?key|dd[_-]?api[_-]?key)\b\s*[:=]\s*[^\s"']+`)

	// Raw Google API keys carry a fixed AIza prefix.
	googleKeyRe = regexp.MustCompile(`\bAIza[0-9A-Za-z_-]{10,}`)
)

// RedactSecrets removes obvious secret-bearing substrings from error and
// log messages. Safe to call on any string, including user input and
// upstream error text.
func RedactSecrets(s string) string {
	if s == "" {
		return ""
	}
	out := bearerTokenRe.ReplaceAllString(s, "Bearer <redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	out = googleKeyRe.ReplaceAllString(out, "<redacted>")
	return strings.TrimSpace(out)
}
