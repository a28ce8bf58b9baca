package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shpitdev/reshape/internal/util"
)

// errorEnvelope is the server's error body shape.
type errorEnvelope struct {
	Error string `json:"error"`
}

// HTTPError is a sanitized summary of a non-2xx API response.
//
// Important: raw response bodies never land here; messages pass through
// secret redaction first.
type HTTPError struct {
	Op         string
	StatusCode int
	Status     string
	Message    string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "reshape api error"
	}
	parts := []string{
		fmt.Sprintf("reshape api error: op=%s status=%s", strings.TrimSpace(e.Op), strings.TrimSpace(e.Status)),
	}
	if strings.TrimSpace(e.Message) != "" {
		parts = append(parts, "message="+strings.TrimSpace(e.Message))
	}
	return strings.Join(parts, " ")
}

func newHTTPError(op string, resp *http.Response, body []byte) error {
	h := &HTTPError{Op: op}
	if resp != nil {
		h.StatusCode = resp.StatusCode
		h.Status = resp.Status
	}

	var env errorEnvelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil && strings.TrimSpace(env.Error) != "" {
		h.Message = util.RedactSecrets(env.Error)
		return h
	}

	// Fallback for non-JSON bodies: a small, redacted hint only.
	h.Message = redactAndTruncate(body)
	return h
}

func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	const max = 256
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := util.RedactSecrets(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}
