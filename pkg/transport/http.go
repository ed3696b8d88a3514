package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/blimu-dev/webapi/pkg/apierr"
)

// maxBodySize bounds the bytes read from a response.
const maxBodySize = 50 << 20

// HTTPConfig contains configuration for the HTTP transport.
type HTTPConfig struct {
	Timeout         time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
	// FailOnStatus turns non-2xx responses into transport errors.
	FailOnStatus bool
	UserAgent    string
	Logger       *zerolog.Logger
}

// DefaultHTTPConfig returns the configuration used by the command line tool.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:         30 * time.Second,
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
		FailOnStatus:    true,
		UserAgent:       "webapi",
	}
}

// HTTP performs requests with net/http.
type HTTP struct {
	client       *http.Client
	failOnStatus bool
	userAgent    string
	logger       zerolog.Logger
}

// NewHTTP creates an HTTP transport. Zero values in cfg take the defaults.
func NewHTTP(cfg HTTPConfig) *HTTP {
	def := DefaultHTTPConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = def.MaxIdleConns
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = def.IdleConnTimeout
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &HTTP{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        cfg.MaxIdleConns,
				MaxIdleConnsPerHost: cfg.MaxIdleConns,
				IdleConnTimeout:     cfg.IdleConnTimeout,
			},
			Timeout: cfg.Timeout,
		},
		failOnStatus: cfg.FailOnStatus,
		userAgent:    cfg.UserAgent,
		logger:       logger,
	}
}

// NewHTTPWithClient wraps an existing client, e.g. an httptest server's.
func NewHTTPWithClient(client *http.Client, failOnStatus bool) *HTTP {
	return &HTTP{client: client, failOnStatus: failOnStatus, logger: zerolog.Nop()}
}

// Perform sends req and reads the whole response body.
func (h *HTTP) Perform(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return Response{}, apierr.Transport(req.Op, fmt.Errorf("create request: %w", err))
	}
	if h.userAgent != "" {
		httpReq.Header.Set("User-Agent", h.userAgent)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return Response{}, apierr.Transport(req.Op, fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Response{}, apierr.Transport(req.Op, fmt.Errorf("read response: %w", err))
	}

	h.logger.Debug().
		Str("op", req.Op).
		Str("method", req.Method).
		Str("url", req.URL).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("request completed")

	if h.failOnStatus && !OK(resp.StatusCode) {
		return Response{}, apierr.Status(req.Op, resp.StatusCode, body)
	}
	return Response{Status: resp.StatusCode, Body: body}, nil
}
