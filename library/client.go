package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TokenSource yields the current bearer token, or "" when the session is
// unauthenticated. A *Session satisfies it.
type TokenSource interface {
	Token() string
}

// Client is a thin typed wrapper over the collaborator's REST endpoints.
// It attaches the bearer token to every request and converts ISO timestamps
// into time.Time on decode. It holds no state beyond configuration.
type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  TokenSource
}

// NewClient builds a client for the collaborator at baseURL. Timeouts are
// left to the transport defaults.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   http.DefaultClient,
		tokens:  tokens,
	}
}

// SetHTTPClient swaps the underlying HTTP client, mainly for tests.
func (c *Client) SetHTTPClient(h *http.Client) { c.httpc = h }

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	if method != http.MethodGet {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}
	return req, nil
}

// apiErrorBody is the shape the collaborator uses for error payloads; some
// endpoints populate "message", others "error".
type apiErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// do executes the request and normalizes non-2xx responses into *APIError,
// preferring the server's message over the fallback. The caller owns the
// returned body.
func (c *Client) do(req *http.Request, fallback string) (*http.Response, error) {
	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fallback, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		defer res.Body.Close()
		msg := fallback
		var body apiErrorBody
		if data, readErr := io.ReadAll(res.Body); readErr == nil {
			if json.Unmarshal(data, &body) == nil {
				if body.Message != "" {
					msg = body.Message
				} else if body.Error != "" {
					msg = body.Error
				}
			}
		}
		return nil, &APIError{StatusCode: res.StatusCode, Message: msg}
	}
	return res, nil
}

// getJSON issues a GET and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path, fallback string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	res, err := c.do(req, fallback)
	if err != nil {
		return err
	}
	return decodeBody(res, out)
}

// sendJSON issues a mutation with an optional JSON body and decodes the
// response into out (skipped when out is nil).
func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any, fallback string) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = strings.NewReader(string(data))
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.do(req, fallback)
	if err != nil {
		return err
	}
	if out == nil {
		res.Body.Close()
		return nil
	}
	return decodeBody(res, out)
}

func decodeBody(res *http.Response, out any) error {
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParseResponse, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrParseResponse, err)
	}
	return nil
}

// isNotFound reports whether err is a 404 APIError; list endpoints for borrow
// records and notifications treat that as an empty result.
func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
