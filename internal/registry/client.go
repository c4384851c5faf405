// Package registry provides an HTTP client for package registry APIs.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/simplesurance/depupdater/internal/deps"
	"github.com/simplesurance/depupdater/internal/logfields"
	"github.com/simplesurance/depupdater/internal/retry"
	"github.com/simplesurance/depupdater/internal/updateerr"
)

const loggerName = "registry_client"

const DefaultHTTPClientTimeout = time.Minute

const maxResponseSize = 32 * 1024 * 1024

// ErrNotFound is returned when the registry responds with 404 or 410.
var ErrNotFound = errors.New("not found")

// Client requests resources from package registries.
// Requests to hosts with a matching credential are authenticated.
// Requests that fail with a retryable error are retried.
type Client struct {
	httpClient *http.Client
	creds      deps.Credentials
	retryer    *retry.Retryer
	userAgent  string
	logger     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(clt *http.Client) Option {
	return func(c *Client) {
		c.httpClient = clt
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

func New(creds deps.Credentials, retryer *retry.Retryer, opts ...Option) *Client {
	c := Client{
		httpClient: &http.Client{Timeout: DefaultHTTPClientTimeout},
		creds:      creds,
		retryer:    retryer,
		userAgent:  "depupdater",
		logger:     zap.L().Named(loggerName),
	}

	for _, o := range opts {
		o(&c)
	}

	return &c
}

// GetJSON requests rawURL and decodes the JSON response body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding response of %s failed: %w", rawURL, err)
	}

	return nil
}

// Get requests rawURL and returns the response body.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	var result []byte

	err := c.retryer.Run(ctx, func(ctx context.Context) error {
		var err error
		result, err = c.get(ctx, rawURL)
		return err
	}, []zap.Field{logfields.URL(rawURL)})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/plain;q=0.9, */*;q=0.5")

	if cred := c.creds.ForHost(u.Hostname()); cred != nil {
		if cred.Username != "" {
			req.SetBasicAuth(cred.Username, cred.Password)
		} else {
			req.Header.Set("Authorization", "Bearer "+cred.Password)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}

		return nil, updateerr.NewRetryableAnytimeError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, updateerr.NewRetryableAnytimeError(fmt.Errorf("reading response body failed: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil

	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%s: %w", rawURL, ErrNotFound)

	case resp.StatusCode == http.StatusTooManyRequests:
		after := retryAfter(resp.Header.Get("Retry-After"))
		c.logger.Info(
			"registry rate limit exceeded",
			logfields.Event("registry_rate_limit_exceeded"),
			logfields.URL(rawURL),
			zap.Time("retry_after", after),
		)

		return nil, updateerr.NewRetryableError(statusError(resp, rawURL), after)

	case resp.StatusCode >= 500 && resp.StatusCode < 600:
		return nil, updateerr.NewRetryableAnytimeError(statusError(resp, rawURL))

	default:
		return nil, statusError(resp, rawURL)
	}
}

func statusError(resp *http.Response, rawURL string) error {
	return fmt.Errorf("GET %s: unexpected response status: %s", rawURL, resp.Status)
}

// retryAfter parses the value of a Retry-After header, the zero time is
// returned when it is missing or unparseable.
func retryAfter(val string) time.Time {
	if val == "" {
		return time.Time{}
	}

	if secs, err := strconv.Atoi(val); err == nil {
		return time.Now().Add(time.Duration(secs) * time.Second)
	}

	if t, err := http.ParseTime(val); err == nil {
		return t
	}

	return time.Time{}
}
