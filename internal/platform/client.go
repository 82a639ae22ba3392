package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lectern/internal/config"
	"lectern/internal/services"
)

const (
	defaultUserAgent   = "Lectern/dev"
	defaultHTTPTimeout = 30 * time.Second
	maxErrorBody       = 4096
)

// Config describes the course-content API client configuration.
type Config struct {
	BaseURL     string
	Cookie      string
	AccessToken string
	UserAgent   string
	PageSize    int
	Locales     []string
	HTTPClient  *http.Client
	// RetryBackoff is the first wait after a 429 or 5xx reply. It doubles up to MaxBackoff.
	RetryBackoff time.Duration
	MaxRetries   int
}

// Client wraps the platform's curriculum and caption endpoints.
type Client struct {
	baseURL      *url.URL
	cookie       string
	accessToken  string
	userAgent    string
	pageSize     int
	locales      []string
	http         *http.Client
	retryBackoff time.Duration
	maxRetries   int
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("platform: base url is required")
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("platform: parse base url: %w", err)
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = InitialBackoff
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = MaxRetries
	}
	return &Client{
		baseURL:      baseURL,
		cookie:       strings.TrimSpace(cfg.Cookie),
		accessToken:  strings.TrimSpace(cfg.AccessToken),
		userAgent:    userAgent,
		pageSize:     pageSize,
		locales:      append([]string(nil), cfg.Locales...),
		http:         httpClient,
		retryBackoff: backoff,
		maxRetries:   retries,
	}, nil
}

// NewFromConfig builds a client from the [platform] section. It returns nil
// when platform fetching is disabled.
func NewFromConfig(cfg *config.Config) (*Client, error) {
	if cfg == nil || !cfg.Platform.Enabled {
		return nil, nil
	}
	return New(Config{
		BaseURL:     cfg.Platform.BaseURL,
		Cookie:      cfg.Platform.Cookie,
		AccessToken: cfg.Platform.AccessToken,
		UserAgent:   cfg.Platform.UserAgent,
		PageSize:    cfg.Platform.PageSize,
		Locales:     cfg.Platform.CaptionLocales,
		HTTPClient:  &http.Client{Timeout: time.Duration(cfg.Platform.RequestTimeout) * time.Second},
	})
}

// Ping checks that the API host answers at all. Any HTTP reply counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL.String(), nil)
	if err != nil {
		return fmt.Errorf("platform: build ping request: %w", err)
	}
	c.applyHeaders(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "platform", "ping", "api unreachable", err)
	}
	resp.Body.Close()
	return nil
}

// StatusError reports a non-2xx reply.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("platform: %s failed (%d %s): %s", e.Op, e.Status, http.StatusText(e.Status), e.Body)
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
}

// getJSON fetches endpoint and decodes the reply into dst, retrying rate
// limits and server errors with exponential backoff.
func (c *Client) getJSON(ctx context.Context, op, endpoint string, dst any) error {
	body, err := c.get(ctx, op, endpoint)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return services.Wrap(services.ErrExternalTool, "platform", op, "decode response", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, op, endpoint string) ([]byte, error) {
	delay := c.retryBackoff
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := SleepWithContext(ctx, delay); err != nil {
				return nil, err
			}
			if delay *= 2; delay > MaxBackoff {
				delay = MaxBackoff
			}
		}
		body, err := c.getOnce(ctx, op, endpoint)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !IsRetriable(err) || ctx.Err() != nil {
			break
		}
	}
	marker := services.ErrExternalTool
	var statusErr *StatusError
	if errors.As(lastErr, &statusErr) && statusErr.Status == http.StatusNotFound {
		marker = services.ErrNotFound
	}
	return nil, services.Wrap(marker, "platform", op, "request failed", lastErr)
}

func (c *Client) getOnce(ctx context.Context, op, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("platform: build %s request: %w", op, err)
	}
	c.applyHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform: %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("platform: read %s response: %w", op, err)
	}
	return body, nil
}
