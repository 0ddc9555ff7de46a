// Package client is a typed Go client for the admin API.
//
// GET responses are cached in a querycache.Store and invalidated by the tags each
// mutation declares. Identical concurrent GETs share one request, GETs are retried
// with exponential backoff on network and 5xx failures, and mutations are sent once.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/contract"
	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/pagination"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/querycache"
)

const maxBodyBytes = 32 << 20

// Config configures a Client.
type Config struct {
	// BaseURL includes the API prefix, e.g. http://localhost:8080/api/v1.
	BaseURL string
	Token   string

	HTTPClient *http.Client
	Cache      *querycache.Store
	Logger     *zap.Logger

	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	cache    *querycache.Store
	logger   *zap.Logger
	validate *validator.Validate

	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	tokenMu sync.RWMutex
	token   string

	group    singleflight.Group
	mu       sync.Mutex
	seq      uint64
	inflight map[string]flightState
}

type flightState struct {
	seq  uint64
	tags []string
}

type envelope struct {
	Success    bool             `json:"success"`
	Data       json.RawMessage  `json:"data"`
	Message    string           `json:"message"`
	Error      *appErrors.Error `json:"error"`
	Pagination *pagination.Meta `json:"pagination"`
}

// New validates cfg and builds a client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("client: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base URL: %w", err)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Cache == nil {
		cfg.Cache = querycache.New(512, 30*time.Second)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 2 * time.Second
	}
	return &Client{
		baseURL:        base,
		http:           cfg.HTTPClient,
		cache:          cfg.Cache,
		logger:         cfg.Logger,
		validate:       contract.NewValidator(),
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		token:          cfg.Token,
		inflight:       make(map[string]flightState),
	}, nil
}

// SetToken replaces the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.tokenMu.Lock()
	c.token = token
	c.tokenMu.Unlock()
}

// Cache exposes the response cache.
func (c *Client) Cache() *querycache.Store {
	return c.cache
}

// Invalidate drops cached responses carrying any of tags and detaches in-flight
// requests for them, so the next read goes to the server.
func (c *Client) Invalidate(tags ...string) {
	c.cache.Invalidate(tags...)

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, state := range c.inflight {
		if overlaps(state.tags, tags) {
			c.group.Forget(key)
		}
	}
}

// query performs a cached, deduplicated, retried GET and decodes the envelope into out.
func (c *Client) query(ctx context.Context, key querycache.Key, path string, params url.Values, out interface{}) (*pagination.Meta, error) {
	raw, ok := c.cache.Get(key)
	if !ok {
		var err error
		raw, err = c.fetch(ctx, key, path, params)
		if err != nil {
			return nil, err
		}
	}
	return decode(raw, out)
}

func (c *Client) fetch(ctx context.Context, key querycache.Key, path string, params url.Values) ([]byte, error) {
	k := key.String()
	ch := c.group.DoChan(k, func() (interface{}, error) {
		seq := c.beginFlight(k, []string{key.Tag(), querycache.ResourceTag(key.Resource)})
		defer c.endFlight(k, seq)

		version := c.cache.Version()
		// Shared by every waiter, so one caller cancelling must not fail the others.
		raw, err := c.getWithRetry(context.WithoutCancel(ctx), path, params)
		if err != nil {
			return nil, err
		}
		if !c.isLatest(k, seq) {
			return nil, ErrSuperseded
		}
		c.cache.SetIfCurrent(version, key, raw)
		return raw, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (c *Client) beginFlight(key string, tags []string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.inflight[key] = flightState{seq: c.seq, tags: tags}
	return c.seq
}

func (c *Client) isLatest(key string, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[key].seq == seq
}

func (c *Client) endFlight(key string, seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[key].seq == seq {
		delete(c.inflight, key)
	}
}

func (c *Client) getWithRetry(ctx context.Context, path string, params url.Values) ([]byte, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialBackoff
	policy.MaxInterval = c.maxBackoff
	policy.MaxElapsedTime = 0

	var body []byte
	op := func() error {
		raw, _, err := c.do(ctx, http.MethodGet, path, params, nil)
		if err != nil {
			if IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		body = raw
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Debug("retrying request", zap.String("path", path), zap.Duration("wait", wait), zap.Error(err))
	}

	retries := uint64(c.maxAttempts - 1)
	if err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx), notify); err != nil {
		return nil, err
	}
	return body, nil
}

// mutate sends a non-idempotent request once and invalidates tags on success.
func (c *Client) mutate(ctx context.Context, method, path string, payload, out interface{}, tags ...string) error {
	if payload != nil {
		if err := c.validateRequest(payload); err != nil {
			return err
		}
	}
	raw, _, err := c.do(ctx, method, path, nil, payload)
	if err != nil {
		return err
	}
	c.Invalidate(tags...)
	if out == nil || len(raw) == 0 {
		return nil
	}
	_, err = decode(raw, out)
	return err
}

func (c *Client) validateRequest(payload interface{}) error {
	switch payload.(type) {
	case contract.CreatePermissionRequest, contract.UpdatePermissionRequest,
		contract.CreateRoleRequest, contract.UpdateRoleRequest,
		contract.CreateUserRequest, contract.UpdateUserRequest, contract.BulkUserRequest,
		contract.PropertyRequest:
		return contract.Validate(c.validate, payload)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, payload interface{}) ([]byte, http.Header, error) {
	target := c.baseURL.JoinPath(path)
	if len(params) > 0 {
		target.RawQuery = params.Encode()
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("client: encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.tokenMu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.tokenMu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, &NetworkError{Method: method, URL: target.String(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, &NetworkError{Method: method, URL: target.String(), Err: err}
	}
	if resp.StatusCode >= 400 {
		return nil, resp.Header, errorFromResponse(resp.StatusCode, raw)
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, resp.Header, nil
	}
	return raw, resp.Header, nil
}

func errorFromResponse(status int, raw []byte) error {
	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if status >= 500 || decodeErr != nil || env.Error == nil {
		srv := &ServerError{Status: status, Message: http.StatusText(status)}
		if decodeErr == nil && env.Error != nil {
			srv.Code = env.Error.Code
			srv.Message = env.Error.Message
		}
		return srv
	}
	apiErr := env.Error
	apiErr.Status = status
	return apiErr
}

func decode(raw []byte, out interface{}) (*pagination.Meta, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("client: decode envelope: %w", err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("client: decode data: %w", err)
		}
	}
	return env.Pagination, nil
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
