// Package api is the client of the storefront HTTP API. It owns the wire
// contract: paths, payload shapes, the bearer header and the normalisation of
// server responses.
package api

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

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const maxResponseBody = 1 << 20 // 1MB

// RemoveStyle picks the wire shape of the remove-from-cart request. Both
// target the same server capability.
type RemoveStyle string

const (
	// RemoveStylePost is POST /api/cart/remove with {"product_id"}.
	RemoveStylePost RemoveStyle = "post"
	// RemoveStyleDelete is DELETE /api/cart/remove/{product_id}.
	RemoveStyleDelete RemoveStyle = "delete"
)

type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RemoveStyle RemoveStyle
	// BreakerFailures consecutive network or 5xx failures open the breaker.
	// Zero disables tripping.
	BreakerFailures uint32
	BreakerCooldown time.Duration
	// Transport defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker[*response]
	removeStyle RemoveStyle
	log         *zap.Logger
}

type response struct {
	status int
	body   []byte
}

func New(cfg Config, log *zap.Logger) *Client {
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if cfg.RemoveStyle == "" {
		cfg.RemoveStyle = RemoveStylePost
	}
	if cfg.BreakerCooldown == 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:    "storefront-api",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.BreakerFailures > 0 && counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(base),
			Timeout:   cfg.Timeout,
		},
		breaker:     breaker,
		removeStyle: cfg.RemoveStyle,
		log:         log,
	}
}

// do sends one request. A non-empty token is sent as a bearer credential. out,
// when non-nil, receives the decoded 2xx body.
func (c *Client) do(ctx context.Context, op, method, path string, token domain.Credential, in, out any) error {
	res, err := c.send(ctx, op, method, path, token, in)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(res.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, op, method, path string, token domain.Credential, in any) (*response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token.String())
	}

	start := time.Now()
	res, err := c.breaker.Execute(func() (*response, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return nil, err
		}
		res := &response{status: resp.StatusCode, body: data}
		if resp.StatusCode >= http.StatusInternalServerError {
			return res, &ServerError{Op: op, Status: resp.StatusCode, Message: messageFromBody(data)}
		}
		return res, nil
	})

	var se *ServerError
	switch {
	case errors.As(err, &se):
		c.log.Warn("api request rejected", zap.String("op", op), zap.Int("status", se.Status))
		return nil, se
	case err != nil:
		c.log.Error("api request failed", zap.String("op", op), zap.Error(err))
		return nil, &NetworkError{Op: op, Err: err}
	}

	c.log.Debug("api request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", res.status),
		zap.Duration("took", time.Since(start)))

	if res.status < 200 || res.status > 299 {
		c.log.Warn("api request rejected", zap.String("op", op), zap.Int("status", res.status))
		return nil, &ServerError{Op: op, Status: res.status, Message: messageFromBody(res.body)}
	}
	return res, nil
}
