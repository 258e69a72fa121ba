// Package remote calls a heartx translation service over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/miniheartx/heartx/pkg/session"
	"github.com/miniheartx/heartx/pkg/transport"
)

const (
	DefaultTimeout = 10 * time.Second
	translatePath  = "/api/translate"
	maxReplyBytes  = 1 << 20
)

var (
	// ErrUnavailable wraps every failure to obtain a usable reply.
	ErrUnavailable = errors.New("translation service unavailable")
	// ErrMalformedReply means the service answered 2xx with a body that does
	// not have the expected shape.
	ErrMalformedReply = errors.New("malformed translation reply")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("translation service returned HTTP %d", e.Code)
	}
	return fmt.Sprintf("translation service returned HTTP %d: %s", e.Code, body)
}

func (e *StatusError) Unwrap() error { return ErrUnavailable }

type Request struct {
	Input string       `json:"input"`
	Mode  session.Mode `json:"mode"`
}

type Reply struct {
	Command string                 `json:"command"`
	Output  []string               `json:"output"`
	Type    session.Classification `json:"type"`
}

type Options struct {
	// Timeout bounds each Translate call. Zero means DefaultTimeout.
	Timeout    time.Duration
	HTTPClient *http.Client
	Transport  transport.Options
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient builds a client for the service rooted at baseURL
// (for example http://127.0.0.1:8000).
func NewClient(baseURL string, opts Options) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("translation service url is empty")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("translation service url %q must start with http:// or https://", baseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		topts := opts.Transport
		if topts.Timeout <= 0 {
			topts.Timeout = timeout
		}
		c, err := transport.NewClient(topts)
		if err != nil {
			return nil, err
		}
		httpClient = c
	}

	return &Client{baseURL: baseURL, timeout: timeout, httpClient: httpClient}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// Translate posts req and validates the reply. Any error wraps
// ErrUnavailable.
func (c *Client) Translate(ctx context.Context, req Request) (Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if req.Mode == "" {
		req.Mode = session.DefaultMode
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: marshal request: %v", ErrUnavailable, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+translatePath, bytes.NewReader(payload))
	if err != nil {
		return Reply{}, fmt.Errorf("%w: create request: %v", ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return Reply{}, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Reply{}, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	return decodeReply(body)
}

func decodeReply(body []byte) (Reply, error) {
	var reply Reply
	if err := json.Unmarshal(body, &reply); err != nil {
		return Reply{}, fmt.Errorf("%w: %w: %v", ErrUnavailable, ErrMalformedReply, err)
	}
	if strings.TrimSpace(reply.Command) == "" {
		return Reply{}, fmt.Errorf("%w: %w: missing command", ErrUnavailable, ErrMalformedReply)
	}
	if !reply.Type.Valid() {
		return Reply{}, fmt.Errorf("%w: %w: unknown type %q", ErrUnavailable, ErrMalformedReply, reply.Type)
	}
	if reply.Output == nil {
		return Reply{}, fmt.Errorf("%w: %w: missing output", ErrUnavailable, ErrMalformedReply)
	}
	return reply, nil
}
