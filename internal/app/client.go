package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/singly-connect/internal/config"
	"github.com/samvad-hq/singly-connect/internal/logger"
	"github.com/samvad-hq/singly-connect/internal/storage"
	"github.com/samvad-hq/singly-connect/pkg/connection"
	"github.com/samvad-hq/singly-connect/pkg/httpclient"
	"github.com/samvad-hq/singly-connect/pkg/request"
)

// Client is the runtime behind the CLI. It owns the transport and the
// session store, and resolves access tokens before handing requests to a
// connection.
type Client struct {
	cfg   *config.Config
	http  httpclient.Client
	store storage.Store
	log   logger.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the resty transport.
func WithHTTPClient(c httpclient.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithStore replaces the configured session store.
func WithStore(s storage.Store) Option {
	return func(cl *Client) {
		if s != nil {
			cl.store = s
		}
	}
}

// NewClient builds the runtime from config.
func NewClient(cfg *config.Config, log logger.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	c := &Client{cfg: cfg, log: log}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.http == nil {
		c.http = httpclient.NewRestyClient(cfg.HTTPTimeout).WithUserAgent(cfg.UserAgent)
	}

	if c.store == nil {
		store, err := storage.NewStore(cfg.StorageType, cfg.SessionPath, storage.Options{
			TokenTTL:        cfg.SessionTTL,
			CleanupInterval: cfg.StorageCleanupInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		c.store = store
		log.DebugObj("session storage initialized", "storage_config", map[string]any{
			"type":                     cfg.StorageType,
			"path":                     cfg.SessionPath,
			"ttl_seconds":              int(cfg.SessionTTL.Seconds()),
			"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
		})
	}

	return c, nil
}

// Call performs req and returns the decoded response. With async set the call
// goes through the completion-callback path and Call waits for the callback.
func (c *Client) Call(ctx context.Context, req *request.Request, async bool) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("client is not initialized")
	}
	if req == nil {
		return nil, connection.ErrNilRequest
	}

	req, err := c.authorize(req)
	if err != nil {
		return nil, err
	}

	conn, err := connection.New(req,
		connection.WithClient(c.http),
		connection.WithBaseURL(c.cfg.APIBaseURL),
		connection.WithLogger(c.log),
	)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var value any
	if async {
		res := <-conn.Go(ctx)
		value, err = res.Value, res.Err
	} else {
		value, err = conn.Perform(ctx)
	}

	meta := map[string]any{
		"request":    req.String(),
		"async":      async,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		meta["error"] = err.Error()
		var statusErr *connection.StatusError
		if errors.As(err, &statusErr) {
			meta["status"] = statusErr.StatusCode
		}
		c.log.WarnObj("singly call failed", "call", meta)
		return nil, err
	}
	c.log.InfoObj("singly call completed", "call", meta)
	return value, nil
}

// authorize attaches the configured or stored access token to authorized
// requests that do not carry one yet.
func (c *Client) authorize(req *request.Request) (*request.Request, error) {
	if !req.Authorized() || req.HasToken() {
		return req, nil
	}
	if c.cfg.AccessToken != "" {
		return req.WithToken(c.cfg.AccessToken), nil
	}
	token, ok, err := c.store.Token(storage.DefaultAccount)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return req, nil
	}
	return req.WithToken(token), nil
}

// SaveToken stores token as the current session.
func (c *Client) SaveToken(token string) error {
	if err := c.store.SaveToken(storage.DefaultAccount, token); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Token returns the stored session token.
func (c *Client) Token() (string, bool, error) {
	return c.store.Token(storage.DefaultAccount)
}

// ClearToken forgets the stored session.
func (c *Client) ClearToken() error {
	if err := c.store.DeleteToken(storage.DefaultAccount); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Close releases the session store.
func (c *Client) Close() error {
	if c == nil || c.store == nil {
		return nil
	}
	if err := c.store.Close(); err != nil {
		c.log.ErrorObj("storage close failed", "error", err)
		return err
	}
	return nil
}
