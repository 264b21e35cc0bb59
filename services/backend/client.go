package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/subdesk/subdesk/core"
	"github.com/subdesk/subdesk/core/session"
)

var (
	// ErrUnauthorized is returned whenever the backend reports the session as
	// invalidated (401/403). By the time a caller sees it, the credential has
	// already been cleared and the session-ended hook fired; callers only need
	// to abort whatever they were doing.
	ErrUnauthorized = errors.New("session invalidated")
)

type (
	// APIError is a non-2xx response carrying the backend's `detail` message.
	APIError struct {
		StatusCode int
		Detail     string
	}

	// TransportError is a request that could not be sent or received.
	TransportError struct {
		Err error
	}

	// Client is the single chokepoint through which every backend call passes.
	// It attaches the bearer credential, normalizes response handling and
	// enforces the session-invalidation contract for all callers at once.
	Client struct {
		baseURL        string
		http           *http.Client
		store          session.Store
		log            core.Logger
		onUnauthorized func()
	}
)

func (e *APIError) Error() string {
	return fmt.Sprintf("server rejected request (%d): %s", e.StatusCode, e.Detail)
}

func (e *TransportError) Error() string {
	return "cannot reach backend: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

func NewClient(conf *core.Config, store session.Store, log core.Logger) *Client {
	return &Client{
		baseURL: conf.BaseURL,
		http:    &http.Client{Timeout: conf.RequestTimeout},
		store:   store,
		log:     log,
	}
}

// OnUnauthorized registers the hook fired after a 401/403 response has been
// handled (credential already cleared). It replaces the hard page reload of a
// browser client: the hook is expected to reset all in-memory session state.
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

// GetJSON issues an authenticated GET and decodes the JSON response into v.
func (c *Client) GetJSON(ctx context.Context, path string, v interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, "application/json", v)
}

// PostJSON issues an authenticated POST with a JSON body and decodes the
// response into v. v may be nil when the response body is of no interest.
func (c *Client) PostJSON(ctx context.Context, path string, body, v interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encoding request body")
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(data), "application/json", v)
}

// PostMultipart issues an authenticated multipart POST uploading src as the
// named file field. It bypasses the default JSON content type but still
// participates in the same session-invalidation handling as every other call.
func (c *Client) PostMultipart(ctx context.Context, path, field, filename string, src io.Reader, v interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return errors.Wrap(err, "creating multipart field")
	}
	if _, err = io.Copy(part, src); err != nil {
		return errors.Wrap(err, "copying file contents")
	}
	if err = w.Close(); err != nil {
		return errors.Wrap(err, "finalizing multipart body")
	}
	return c.do(ctx, http.MethodPost, path, &buf, w.FormDataContentType(), v)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-ID", uuid.New().String())
	if credential, err := c.store.Load(); err == nil {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	// Global end-of-request policy: any 401/403 invalidates the session for
	// every caller at once.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		if err := c.store.Clear(); err != nil {
			c.log.Error("clearing invalidated credential", err)
		}
		c.log.Warn(fmt.Sprintf("session invalidated by %s %s (%d)", method, path, resp.StatusCode))
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return ErrUnauthorized
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(data, resp.StatusCode)}
	}

	if v == nil {
		return nil
	}
	if err = json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "decoding %s %s response", method, path)
	}
	return nil
}

// errorDetail extracts the backend's `detail` message from an error body,
// falling back to the generic HTTP status text. Validation errors carry a
// structured detail; those are stringified rather than dropped.
func errorDetail(data []byte, statusCode int) string {
	var body struct {
		Detail interface{} `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Detail != nil {
		if s, ok := body.Detail.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", body.Detail)
	}
	return http.StatusText(statusCode)
}
