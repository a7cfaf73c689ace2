package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/testdesk/internal/model"
)

// maxErrorBody caps how much of a failed response is kept for logging.
const maxErrorBody = 512

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRequestID forwards the id returned by fn as X-Request-ID.
func WithRequestID(fn func(context.Context) string) Option {
	return func(c *Client) { c.requestID = fn }
}

// Client talks to the remote tests API.
type Client struct {
	baseURL   string
	http      *http.Client
	requestID func(context.Context) string
	log       zerolog.Logger
}

// New creates a Client for baseURL. A zero timeout means none.
func New(baseURL string, timeout time.Duration, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "api_client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetUser fetches the user registered under chatID.
// GET /users/{chat_id}
func (c *Client) GetUser(ctx context.Context, chatID model.ChatID) (*model.User, error) {
	var env model.Envelope[*model.User]
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(chatID.String()), nil, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, fmt.Errorf("get user %s: empty data", chatID)
	}
	return env.Data, nil
}

// ListTests fetches every test.
// GET /tests
func (c *Client) ListTests(ctx context.Context) ([]model.Test, error) {
	var env model.Envelope[[]model.Test]
	if err := c.do(ctx, http.MethodGet, "/tests", nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// ListTestsByOwner fetches the tests owned by chatID.
// GET /tests/all/{chat_id}
func (c *Client) ListTestsByOwner(ctx context.Context, chatID model.ChatID) ([]model.Test, error) {
	var env model.Envelope[[]model.Test]
	if err := c.do(ctx, http.MethodGet, "/tests/all/"+url.PathEscape(chatID.String()), nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// CreateTest posts a new test and returns the stored record.
// POST /tests
func (c *Client) CreateTest(ctx context.Context, req model.CreateTestRequest) (*model.Test, error) {
	var env model.Envelope[*model.Test]
	if err := c.do(ctx, http.MethodPost, "/tests", req, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, errors.New("create test: empty data")
	}
	return env.Data, nil
}

// UpdateTest replaces test id and returns the stored record.
// PUT /tests/{id}
func (c *Client) UpdateTest(ctx context.Context, id int, req model.UpdateTestRequest) (*model.Test, error) {
	var env model.Envelope[*model.Test]
	if err := c.do(ctx, http.MethodPut, "/tests/"+strconv.Itoa(id), req, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, fmt.Errorf("update test %d: empty data", id)
	}
	return env.Data, nil
}

// DeleteTest removes test id. The response body is ignored.
// DELETE /tests/{id}
func (c *Client) DeleteTest(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/tests/"+strconv.Itoa(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.requestID != nil {
		if id := c.requestID(ctx); id != "" {
			req.Header.Set("X-Request-ID", id)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("API request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("API request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
