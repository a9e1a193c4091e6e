// Package connection performs Singly API requests.
//
// A Connection wraps exactly one request.Request and turns it into exactly one
// outcome: a decoded JSON value or an error, never both and never neither.
// Perform blocks the calling goroutine. PerformAsync and Go run the call on a
// goroutine started by the Connection and deliver the outcome from that
// goroutine; completion callbacks never run on the caller's goroutine.
//
// Status policy: only 2xx responses produce a value. Any other status yields a
// *StatusError, even when the body is valid JSON (the decoded body is kept in
// StatusError.Payload).
package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/samvad-hq/singly-connect/pkg/httpclient"
	"github.com/samvad-hq/singly-connect/pkg/request"
)

// CompletionFunc receives the outcome of an asynchronous call. Exactly one of
// value and err is non-nil.
type CompletionFunc func(value any, err error)

// Result is the outcome delivered by Go.
type Result struct {
	Value any
	Err   error
}

// Connection executes a single request. It holds no state shared with other
// connections and may be performed more than once; each call is independent.
type Connection struct {
	req     *request.Request
	client  httpclient.Client
	baseURL string
	log     Logger
}

// Option configures a Connection.
type Option func(*Connection)

// WithClient sets the transport used to send the request.
func WithClient(client httpclient.Client) Option {
	return func(c *Connection) {
		if client != nil {
			c.client = client
		}
	}
}

// WithBaseURL overrides the API root the request endpoint is resolved against.
func WithBaseURL(baseURL string) Option {
	return func(c *Connection) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithLogger sets a debug logger for request tracing.
func WithLogger(log Logger) Option {
	return func(c *Connection) {
		c.log = ensureLogger(log)
	}
}

// New returns a Connection bound to req.
func New(req *request.Request, opts ...Option) (*Connection, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	c := &Connection{
		req:     req,
		baseURL: request.DefaultBaseURL,
		log:     noopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.client == nil {
		c.client = httpclient.NewRestyClient(httpclient.DefaultTimeout)
	}
	return c, nil
}

// Request returns the request this connection performs.
func (c *Connection) Request() *request.Request {
	if c == nil {
		return nil
	}
	return c.req
}

// Perform sends the request and blocks until the response has been decoded.
func (c *Connection) Perform(ctx context.Context) (any, error) {
	if c == nil || c.req == nil {
		return nil, callError("%w", ErrNilRequest)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	value, err := c.perform(ctx)
	if err != nil {
		return nil, err
	}
	return value, nil
}

// PerformAsync starts the request and returns immediately. onComplete is
// invoked exactly once, on the goroutine that performed the call. A nil
// onComplete discards the outcome.
func (c *Connection) PerformAsync(ctx context.Context, onComplete CompletionFunc) {
	go func() {
		value, err := c.Perform(ctx)
		if onComplete != nil {
			onComplete(value, err)
		}
	}()
}

// Go starts the request and returns a channel that receives exactly one
// Result and is then closed.
func (c *Connection) Go(ctx context.Context) <-chan Result {
	out := make(chan Result, 1)
	c.PerformAsync(ctx, func(value any, err error) {
		out <- Result{Value: value, Err: err}
		close(out)
	})
	return out
}

func (c *Connection) perform(ctx context.Context) (any, error) {
	target, err := c.req.URL(c.baseURL)
	if err != nil {
		return nil, callError("build url: %w", err)
	}
	method := c.req.Method()

	start := time.Now()
	c.log.DebugObj("singly request dispatched", "request", map[string]any{
		"request": c.req.String(),
	})

	resp, err := c.client.Do(ctx, method, target, c.req.Headers(), c.req.Body())
	if err != nil {
		return nil, callError("%s %s: %w", method, c.req.Endpoint(), err)
	}

	c.log.DebugObj("singly response received", "response", map[string]any{
		"request":    c.req.String(),
		"status":     resp.StatusCode(),
		"bytes":      len(resp.Body()),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	body := resp.Body()
	status := resp.StatusCode()
	if status < 200 || status > 299 {
		payload, _ := decodeJSON(body)
		return nil, &StatusError{
			StatusCode: status,
			Method:     method,
			URL:        c.req.Endpoint(),
			Summary:    summarizeBody(body, resp.Header().Get("Content-Type")),
			Payload:    payload,
		}
	}

	value, err := decodeJSON(body)
	if err != nil {
		return nil, callError("%s %s: %w", method, c.req.Endpoint(), err)
	}
	return value, nil
}

// decodeJSON parses body into a dynamic value. Numbers are kept as
// json.Number so large identifiers survive intact.
func decodeJSON(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyResponse
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("decode json response: %w", err)
	}
	if err := dec.Decode(new(json.RawMessage)); err != io.EOF {
		return nil, errors.New("decode json response: trailing data after value")
	}
	if value == nil {
		return nil, ErrEmptyResponse
	}
	return value, nil
}
