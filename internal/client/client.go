package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/diagnosis/roomstay/internal/registry"
	"github.com/diagnosis/roomstay/internal/session"
	"github.com/diagnosis/roomstay/pkg/logger"
	"github.com/google/uuid"
)

type Resolver interface {
	Resolve(name registry.Service) (string, error)
}

// SessionSource is the slice of the session store the client needs.
type SessionSource interface {
	Token() string
	Invalidate(ctx context.Context, reason session.Reason) error
}

// Client dispatches JSON requests to the backend services, attaching the
// bearer token and invalidating the session on 401.
type Client struct {
	registry Resolver
	session  SessionSource
	http     *http.Client
	timeout  time.Duration

	Auth         *AuthService
	Search       *SearchService
	Hotels       *HotelService
	Reservations *ReservationService
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every call. It is applied to a copy of the HTTP client,
// so a shared client passed to WithHTTPClient is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func New(reg Resolver, sess SessionSource, opts ...Option) *Client {
	c := &Client{
		registry: reg,
		session:  sess,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}

	c.Auth = &AuthService{c: c}
	c.Search = &SearchService{c: c}
	c.Hotels = &HotelService{c: c}
	c.Reservations = &ReservationService{c: c}
	return c
}

type call struct {
	service       registry.Service
	path          string
	method        string
	body          any
	headers       map[string]string
	authenticated bool
}

// Request sends an authenticated call and returns the raw JSON body. Caller
// headers are applied last; an empty value removes a default header.
//
// On 401 the session is invalidated before returning, and the body (possibly
// nil) comes back together with an error matching ErrAuthExpired. Every other
// status returns the body with a nil error; interpreting {error: ...}
// payloads is up to the caller.
func (c *Client) Request(ctx context.Context, service registry.Service, path, method string, body any, headers map[string]string) (json.RawMessage, error) {
	return c.do(ctx, call{
		service:       service,
		path:          path,
		method:        method,
		body:          body,
		headers:       headers,
		authenticated: true,
	})
}

// Public sends a call without credentials and without the 401 side effect.
// Login and registration go through here.
func (c *Client) Public(ctx context.Context, service registry.Service, path, method string, body any) (json.RawMessage, error) {
	return c.do(ctx, call{
		service: service,
		path:    path,
		method:  method,
		body:    body,
	})
}

func (c *Client) do(ctx context.Context, in call) (json.RawMessage, error) {
	base, err := c.registry.Resolve(in.service)
	if err != nil {
		return nil, err
	}
	url := base + in.path

	var bodyReader io.Reader
	if in.body != nil {
		payload, err := json.Marshal(in.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, in.method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if in.authenticated {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	requestID, _ := ctx.Value(logger.RequestIDKey).(string)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = context.WithValue(ctx, logger.RequestIDKey, requestID)
	}
	req.Header.Set("X-Request-ID", requestID)

	for key, value := range in.headers {
		if value == "" {
			req.Header.Del(key)
			continue
		}
		req.Header.Set(key, value)
	}

	ctx = context.WithValue(ctx, logger.ServiceKey, string(in.service))
	logger.DebugContext(ctx, "Dispatching request", "method", in.method, "url", url)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: in.method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized && in.authenticated {
		if err := c.session.Invalidate(ctx, session.ReasonUnauthorized); err != nil {
			logger.ErrorContext(ctx, "Failed to clear persisted session", "error", err)
		}
		authErr := &AuthExpiredError{Method: in.method, URL: url}
		if readErr == nil && json.Valid(raw) {
			authErr.Body = raw
		}
		logger.WarnContext(ctx, "Authorization rejected", "method", in.method, "url", url)
		return authErr.Body, authErr
	}

	if readErr != nil {
		return nil, &NetworkError{Method: in.method, URL: url, Status: resp.StatusCode, Err: readErr}
	}

	logger.DebugContext(ctx, "Response received", "method", in.method, "url", url, "status", resp.StatusCode, "bytes", len(raw))

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, &NetworkError{Method: in.method, URL: url, Status: resp.StatusCode, Err: ErrMalformedBody}
	}
	return json.RawMessage(raw), nil
}
