// Package transport is the HTTP side of the session: an authorized API
// client that refreshes expired access tokens transparently, and a bare
// client for the account endpoints.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/and161185/stockfolio/internal/logger"
)

// DefaultTimeout bounds every API call unless Config overrides it.
const DefaultTimeout = 10 * time.Second

// Config describes how to reach the API.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// RootCA is a PEM file trusted in addition to the system pool.
	RootCA string
	// Insecure skips TLS verification (local dev certificates).
	Insecure bool
}

func newResty(cfg Config) *resty.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	if cfg.UserAgent != "" {
		r.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.RootCA != "" {
		r.SetRootCertificate(cfg.RootCA)
	}
	if cfg.Insecure {
		r.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // opt-in for local dev
	}
	r.OnBeforeRequest(tagRequest)
	return r
}

// Request is one API call relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any

	// retried marks the replay after a refresh; a replay is never refreshed again.
	retried bool
	// token overrides the provider for the replay.
	token string
}

// endpoint executes requests and turns error statuses into *APIError.
type endpoint struct {
	http *resty.Client
	log  *zap.Logger
}

func (e endpoint) send(ctx context.Context, req *Request) (*resty.Response, error) {
	r := e.http.R().SetContext(ctx)
	if req.token != "" {
		r.SetHeader(headerAuthorization, bearerPrefix+req.token)
	}
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	e.log.Debug("api call",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode()),
		zap.Bool("retry", req.retried),
		zap.Duration("took", resp.Time()),
	)
	return resp, nil
}

func decode(resp *resty.Response, out any) error {
	if resp.IsError() {
		return newAPIError(resp)
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s: %w", resp.Request.URL, err)
	}
	return nil
}

// Client is the authorized API client. Every request carries the current
// access token; a 401 triggers one shared refresh and one replay.
type Client struct {
	endpoint
	coord *Coordinator
}

// NewClient builds a client whose requests are authorized from tokens and
// whose 401s are resolved through coord. coord may be nil, in which case
// 401s are returned as they are.
func NewClient(cfg Config, tokens TokenProvider, coord *Coordinator, log *zap.Logger) *Client {
	r := newResty(cfg)
	r.OnBeforeRequest(Authorize(tokens))
	return &Client{endpoint: endpoint{http: r, log: logger.OrNop(log)}, coord: coord}
}

// Do sends req. Error statuses come back as *APIError; a 401 is first
// resolved by refreshing and replaying once. If the refresh fails its error
// is returned instead.
func (c *Client) Do(ctx context.Context, req *Request) (*resty.Response, error) {
	attempt := *req
	for {
		resp, err := c.send(ctx, &attempt)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() != http.StatusUnauthorized || attempt.retried || c.coord == nil {
			if resp.IsError() {
				return resp, newAPIError(resp)
			}
			return resp, nil
		}

		tok, err := c.coord.Refresh(ctx, sentToken(resp.Request))
		if err != nil {
			return nil, err
		}
		attempt.retried = true
		attempt.token = tok
	}
}

func (c *Client) call(ctx context.Context, req *Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// Get decodes the JSON answer of GET path into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, &Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post sends body as JSON and decodes the answer into out (if non-nil).
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, &Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, &Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.call(ctx, &Request{Method: http.MethodDelete, Path: path}, out)
}
