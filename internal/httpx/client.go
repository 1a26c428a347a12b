package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	apperr "github.com/ggonzalez94/swapsage/internal/errors"
)

const userAgent = "swapsage/1.0"

// Client performs JSON requests against upstream providers. Retries are
// opt-in; with zero retries every request is attempted exactly once.
type Client struct {
	httpClient   *http.Client
	retries      int
	initialDelay time.Duration
	userAgent    string
}

func New(timeout time.Duration, retries int) *Client {
	if retries < 0 {
		retries = 0
	}
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		retries:      retries,
		initialDelay: 120 * time.Millisecond,
		userAgent:    userAgent,
	}
}

func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any) (http.Header, error) {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialDelay
	policy.MaxInterval = c.initialDelay * 16

	notify := func(err error, wait time.Duration) {
		zap.L().Debug("retrying upstream request",
			zap.String("host", req.URL.Host),
			zap.String("path", req.URL.Path),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}

	var header http.Header
	operation := func() ([]byte, error) {
		buf, h, err := c.attempt(ctx, req)
		header = h
		return buf, err
	}

	buf, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(c.retries+1)),
		backoff.WithNotify(notify))
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return header, err
		}
		return header, apperr.Wrap(apperr.CodeExternalAPI, "upstream request cancelled", err)
	}

	if out == nil {
		return header, nil
	}
	if len(bytes.TrimSpace(buf)) == 0 {
		return header, apperr.New(apperr.CodeExternalAPI, "upstream returned empty response")
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return header, apperr.Wrap(apperr.CodeExternalAPI, "decode upstream JSON", err)
	}
	return header, nil
}

// attempt sends one request. Errors not worth retrying are marked permanent.
func (c *Client) attempt(ctx context.Context, req *http.Request) ([]byte, http.Header, error) {
	cloneReq := req.Clone(ctx)
	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, nil, backoff.Permanent(apperr.Wrap(apperr.CodeInternal, "clone request body", err))
		}
		cloneReq.Body = body
	}

	resp, err := c.httpClient.Do(cloneReq)
	if err != nil {
		return nil, nil, mapNetError(err)
	}
	buf, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp.Header, apperr.Wrap(apperr.CodeExternalAPI, "read upstream response", readErr)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, resp.Header, apperr.New(apperr.CodeRateLimited, "upstream rate limited request")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, resp.Header, backoff.Permanent(apperr.New(apperr.CodeAuth, "upstream authentication failed"))
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, resp.Header, apperr.New(apperr.CodeExternalAPI, fmt.Sprintf("upstream unavailable (status %d)", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, resp.Header, backoff.Permanent(apperr.New(apperr.CodeExternalAPI,
			fmt.Sprintf("upstream returned status %d: %s", resp.StatusCode, snippet(buf))))
	}
	return buf, resp.Header, nil
}

func DoBodyJSON(ctx context.Context, c *Client, method, url string, body []byte, headers map[string]string, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.DoJSON(ctx, req, out)
}

func mapNetError(err error) error {
	if errors.Is(err, context.Canceled) {
		return backoff.Permanent(apperr.Wrap(apperr.CodeExternalAPI, "upstream request cancelled", err))
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return apperr.Wrap(apperr.CodeExternalAPI, "upstream timeout", err)
	}
	return apperr.Wrap(apperr.CodeExternalAPI, "upstream request failed", err)
}

func snippet(buf []byte) string {
	const limit = 200
	s := string(bytes.TrimSpace(buf))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
