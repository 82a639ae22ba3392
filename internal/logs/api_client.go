package logs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"lectern/internal/logging"
)

var (
	ErrAPIUnavailable = errors.New("log API unavailable")
	ErrUnauthorized   = errors.New("log API rejected the agent token")
)

// StreamClient fetches log events over the daemon's HTTP API.
type StreamClient struct {
	base  *url.URL
	token string
	http  *http.Client
}

// StreamQuery selects events after Since. Follow asks the daemon to hold the
// request until an event arrives.
type StreamQuery struct {
	Since  uint64
	Limit  int
	Follow bool
}

// StreamPage is one batch of events plus the cursor for the next query.
type StreamPage struct {
	Events []logging.LogEvent `json:"events"`
	Next   uint64             `json:"next"`
}

// NewStreamClient targets the agent bind address. Wildcard hosts are dialled
// on loopback. An empty bind returns a nil client.
func NewStreamClient(bind, token string) (*StreamClient, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		host, port, err := net.SplitHostPort(bind)
		if err != nil {
			return nil, fmt.Errorf("parse bind %q: %w", bind, err)
		}
		if host == "" || host == "0.0.0.0" || host == "::" {
			host = "127.0.0.1"
		}
		bind = "http://" + net.JoinHostPort(host, port)
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &StreamClient{
		base:  base,
		token: strings.TrimSpace(token),
		// No timeout: follow requests block until the daemon answers or ctx ends.
		http: &http.Client{},
	}, nil
}

// Fetch returns the next page of events.
func (c *StreamClient) Fetch(ctx context.Context, q StreamQuery) (StreamPage, error) {
	if c == nil {
		return StreamPage{}, ErrAPIUnavailable
	}

	values := url.Values{}
	if q.Since > 0 {
		values.Set("since", strconv.FormatUint(q.Since, 10))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Follow {
		values.Set("follow", "1")
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: "/api/logs", RawQuery: values.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return StreamPage{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return StreamPage{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return StreamPage{}, ErrUnauthorized
	case resp.StatusCode >= 400:
		return StreamPage{}, fmt.Errorf("api logs returned status %d", resp.StatusCode)
	}

	var page StreamPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return StreamPage{}, fmt.Errorf("decode log page: %w", err)
	}
	return page, nil
}

// IsAPIUnavailable reports whether err means nothing is listening.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}
