package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/remis-mod/remis/project"
)

// DefaultTimeout bounds a single HTTP request.
const DefaultTimeout = 30 * time.Second

// DefaultMaxRetries is the number of retries for idempotent requests that
// fail with a 5xx status or a transport error.
const DefaultMaxRetries = 2

// HTTPOptions configures an HTTP backend.
type HTTPOptions struct {
	// BaseURL is the server root, e.g. "http://127.0.0.1:8000".
	BaseURL string
	// Token is sent as a bearer token when set.
	Token string
	// Proxy overrides HTTP_PROXY/HTTPS_PROXY.
	Proxy      string
	Timeout    time.Duration
	MaxRetries int
	// RetryDelay is the pause before the first retry; it doubles per attempt.
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// HTTP talks to a proofreading server over its JSON API.
type HTTP struct {
	base       *url.URL
	token      string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	log        *slog.Logger
}

// NewHTTP returns an HTTP backend for opts.BaseURL.
func NewHTTP(opts HTTPOptions) (*HTTP, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL not set")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL %q: %w", opts.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q: scheme must be http or https", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	} else if retries == 0 {
		retries = DefaultMaxRetries
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	return &HTTP{
		base:       base,
		token:      opts.Token,
		client:     makeHTTPClient(opts.Proxy, timeout),
		maxRetries: retries,
		retryDelay: delay,
		log:        loggerOrDiscard(opts.Logger),
	}, nil
}

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// ---------------------------------------------------------------------------
// Backend operations
// ---------------------------------------------------------------------------

// ListProjects returns the active projects.
func (h *HTTP) ListProjects(ctx context.Context) ([]project.Project, error) {
	var out []project.Project
	if err := h.do(ctx, http.MethodGet, "/api/projects", url.Values{"status": {"active"}}, nil, &out); err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return out, nil
}

// ProjectFiles returns the files of a project.
func (h *HTTP) ProjectFiles(ctx context.Context, projectID string) ([]project.File, error) {
	var out []project.File
	path := "/api/project/" + url.PathEscape(projectID) + "/files"
	if err := h.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("listing files of project %s: %w", projectID, err)
	}
	return out, nil
}

// ProofreadData returns the entries and editor content for a file.
func (h *HTTP) ProofreadData(ctx context.Context, projectID, fileID string) (*project.ProofreadData, error) {
	var out project.ProofreadData
	path := "/api/proofread/" + url.PathEscape(projectID) + "/" + url.PathEscape(fileID)
	if err := h.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("loading proofread data for %s/%s: %w", projectID, fileID, err)
	}
	return &out, nil
}

// ReadSourceFile returns the raw text of a file on the server's disk.
func (h *HTTP) ReadSourceFile(ctx context.Context, path string) (string, error) {
	var out struct {
		Content string `json:"content"`
	}
	req := map[string]string{"file_path": path}
	if err := h.do(ctx, http.MethodPost, "/api/system/read_file", nil, req, &out); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return out.Content, nil
}

// SaveEntries persists proofread translations.
func (h *HTTP) SaveEntries(ctx context.Context, req project.SaveRequest) error {
	if err := h.do(ctx, http.MethodPost, "/api/proofread/save", nil, req, nil); err != nil {
		return fmt.Errorf("saving %s/%s: %w", req.ProjectID, req.FileID, err)
	}
	return nil
}

// ValidateLocalization runs the server's validator over req.Content.
func (h *HTTP) ValidateLocalization(ctx context.Context, req project.ValidateRequest) ([]project.Issue, error) {
	var out []project.Issue
	if err := h.do(ctx, http.MethodPost, "/api/validate/localization", nil, req, &out); err != nil {
		return nil, fmt.Errorf("validating: %w", err)
	}
	return out, nil
}

// UpdateFileStatus moves a file to another kanban column.
func (h *HTTP) UpdateFileStatus(ctx context.Context, projectID, fileID string, status project.Status) error {
	path := "/api/project/" + url.PathEscape(projectID) + "/file/" + url.PathEscape(fileID) + "/status"
	body := map[string]project.Status{"status": status}
	if err := h.do(ctx, http.MethodPut, path, nil, body, nil); err != nil {
		return fmt.Errorf("updating status of %s/%s: %w", projectID, fileID, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// do sends one JSON request and decodes the response into out when out
// is non-nil. GET requests are retried on transport errors and 5xx.
func (h *HTTP) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	// path segments are already escaped
	endpoint := h.base.String() + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	retries := 0
	if method == http.MethodGet {
		retries = h.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			delay := h.retryDelay << (attempt - 1)
			h.log.Debug("retrying request", "method", method, "path", path, "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		body, status, err := h.send(ctx, method, endpoint, payload)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}
		h.log.Debug("backend response", "method", method, "path", path, "status", status)

		if status >= 500 && attempt < retries {
			lastErr = &StatusError{Code: status, Body: truncate(string(body), 500)}
			continue
		}
		if status < 200 || status > 299 {
			return &StatusError{Code: status, Body: truncate(string(body), 500)}
		}
		if out == nil || len(bytes.TrimSpace(body)) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response: %w (raw: %s)", err, truncate(string(body), 300))
		}
		return nil
	}
	return lastErr
}

func (h *HTTP) send(ctx context.Context, method, endpoint string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
