// Package client is a minimal Go client for the reshape session API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shpitdev/reshape/pkg/synth"
	"github.com/shpitdev/reshape/pkg/table"
)

// Client talks to a reshape server.
//
// Note: this is intentionally minimal to support the CLI and smoke
// tests. It exposes exactly the session endpoints and nothing else.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// New constructs a client for a server base URL such as
// "http://localhost:8080". A bare host defaults to http.
func New(baseURL string) (*Client, error) {
	u, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL must include a host (got %q)", raw)
	}
	// The base path must end with a slash so ResolveReference treats it
	// as a directory.
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// SessionSummary is the create response: the session identity plus a
// schema and sample preview for prompting.
type SessionSummary struct {
	SessionID string         `json:"session_id"`
	RowCount  int            `json:"row_count"`
	Schema    table.Schema   `json:"schema"`
	Sample    []table.Row    `json:"sample"`
	Cleaning  *CleaningStats `json:"cleaning,omitempty"`
}

// CleaningStats reports what the upload-time cleaning pass touched,
// keyed by field family.
type CleaningStats struct {
	Rows    int            `json:"rows"`
	Changed map[string]int `json:"changed"`
	Nulled  int            `json:"nulled"`
}

// SessionState is the session's full stored table.
type SessionState struct {
	RowCount int          `json:"row_count"`
	Schema   table.Schema `json:"schema"`
	Rows     []table.Row  `json:"rows"`
}

// ExecuteResponse carries the transformed table, plus the program's
// result when it produced one.
type ExecuteResponse struct {
	RowCount int          `json:"row_count"`
	Schema   table.Schema `json:"schema"`
	Rows     []table.Row  `json:"rows"`
	Result   any          `json:"result,omitempty"`
}

// CreateSession uploads a file into a new session. Set clean to run the
// upload-time cleaning pass on the parsed table.
func (c *Client) CreateSession(ctx context.Context, filename string, data []byte, clean bool) (*SessionSummary, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("filename is required")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if clean {
		if err := mw.WriteField("clean", "1"); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve("v1/sessions").String(), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	b, err := c.do(req, "createSession")
	if err != nil {
		return nil, err
	}
	var out SessionSummary
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse create session response: %w", err)
	}
	return &out, nil
}

// Table fetches the session's current table.
func (c *Client) Table(ctx context.Context, sessionID string) (*SessionState, error) {
	u, err := c.sessionURL(sessionID)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	b, err := c.do(req, "getSession")
	if err != nil {
		return nil, err
	}
	var out SessionState
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse get session response: %w", err)
	}
	return &out, nil
}

// Plan asks the server for validated code for the instruction. The
// returned plan has not been executed.
func (c *Client) Plan(ctx context.Context, sessionID, instruction string) (*synth.Plan, error) {
	u, err := c.sessionURL(sessionID, "plan")
	if err != nil {
		return nil, err
	}
	b, err := c.postJSON(ctx, "plan", u, map[string]string{"instruction": instruction})
	if err != nil {
		return nil, err
	}
	var out synth.Plan
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse plan response: %w", err)
	}
	return &out, nil
}

// Execute runs code against the session table. The server re-validates
// the code, executes on a copy, and persists only on success.
func (c *Client) Execute(ctx context.Context, sessionID, code string) (*ExecuteResponse, error) {
	u, err := c.sessionURL(sessionID, "execute")
	if err != nil {
		return nil, err
	}
	b, err := c.postJSON(ctx, "execute", u, map[string]string{"code": code})
	if err != nil {
		return nil, err
	}
	var out ExecuteResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse execute response: %w", err)
	}
	return &out, nil
}

// Delete removes the session and its table.
func (c *Client) Delete(ctx context.Context, sessionID string) error {
	u, err := c.sessionURL(sessionID)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	_, err = c.do(req, "deleteSession")
	return err
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve("healthz").String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	_, err = c.do(req, "health")
	return err
}

func (c *Client) postJSON(ctx context.Context, op string, u *url.URL, body any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, op)
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, newHTTPError(op, resp, b)
	}
	return b, nil
}

func (c *Client) sessionURL(sessionID string, extra ...string) (*url.URL, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	parts := append([]string{"v1/sessions", url.PathEscape(sessionID)}, extra...)
	return c.resolve(strings.Join(parts, "/")), nil
}

func (c *Client) resolve(relPath string) *url.URL {
	relPath = strings.TrimPrefix(relPath, "/")
	rel := &url.URL{Path: relPath}
	return c.baseURL.ResolveReference(rel)
}
