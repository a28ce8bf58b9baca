// Package sanitize screens candidate programs before they reach the
// execution engine. The check is an ordered substring denylist over a
// lower-cased copy of the code: imports, OS and process access, dynamic
// evaluation, raw file handles, interactive input, network clients, and
// persistence calls. Anything not listed is implicitly permitted; the
// engine's closed namespace is the boundary behind this one.
package sanitize

import (
	"fmt"
	"strings"
)

// ValidationError reports the first forbidden token found in a candidate
// program. The whole submission fails; nothing is auto-removed.
type ValidationError struct {
	Token string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("forbidden token %q", e.Token)
}

// builtinDeny is scanned in order; the first hit names the rejection.
var builtinDeny = []string{
	// library imports
	"import ", "from os", "from sys", "from subprocess", "__import__", "require(",
	// dynamic evaluation
	"eval(", "exec(", "compile(",
	// raw file handles
	"open(", "file(",
	// interactive input
	"input(", "raw_input(",
	// os / process access
	"os.", "sys.", "subprocess", "shutil.", "glob.", "pathlib.", "syscall",
	// network clients
	"requests.", "urllib.", "socket.", "http://", "https://", "fetch(",
	// persistence
	".to_csv(", ".to_excel(", ".to_sql(", ".to_pickle(",
	"read_csv", "read_excel", "read_json", "read_sql", ".writecsv(", ".save(",
}

// Validator holds the denylist a deployment runs with: the built-in
// tokens, optionally extended (never shrunk) by a policy file.
type Validator struct {
	deny []string
}

// New returns a validator over the built-in denylist with extra tokens
// appended after it. Extra tokens are lower-cased; blanks are dropped.
func New(extra ...string) *Validator {
	deny := make([]string, 0, len(builtinDeny)+len(extra))
	deny = append(deny, builtinDeny...)
	for _, tok := range extra {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok != "" {
			deny = append(deny, tok)
		}
	}
	return &Validator{deny: deny}
}

// Validate strips code-fence markup from raw and scans a lower-cased
// working copy for denylisted substrings. On success it returns the
// cleaned code unchanged; the first match rejects the whole submission.
func (v *Validator) Validate(raw string) (string, error) {
	code := StripFences(raw)
	lowered := strings.ToLower(code)
	for _, tok := range v.deny {
		if strings.Contains(lowered, tok) {
			return "", &ValidationError{Token: tok}
		}
	}
	return code, nil
}

// StripFences removes surrounding Markdown code-fence lines, which
// generative models like to wrap around code anyway.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			// Drop the whole opening fence line, language tag included.
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-3]
	}
	return strings.TrimSpace(s)
}
