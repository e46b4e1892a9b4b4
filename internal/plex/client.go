package plex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"plexctl/internal/logging"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultDialTimeout    = 10 * time.Second
	defaultProduct        = "plexctl"
	defaultVersion        = "0.1.0"
)

// Identity is the device description sent with every request.
type Identity struct {
	ClientIdentifier string
	Product          string
	Version          string
	DeviceName       string
	Platform         string
}

// RequestObserver is notified once per completed request. Status is zero when
// the transport failed.
type RequestObserver func(route string, status int, elapsed time.Duration)

// Client issues authenticated requests against one server. It is immutable
// after construction and safe for concurrent use; sessions keep their own
// pointer to it instead of reading ambient state.
type Client struct {
	baseURL  string
	token    string
	identity Identity
	http     *http.Client
	strict   bool
	tracing  bool
	logger   *slog.Logger
	observer RequestObserver
}

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP backend. Its Timeout becomes the default
// per-request timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithToken sets the X-Plex-Token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithIdentity sets the X-Plex-* device headers.
func WithIdentity(identity Identity) Option {
	return func(c *Client) {
		c.identity = identity
	}
}

// WithTimeout sets the default per-request timeout. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http = cloneHTTPClient(c.http, timeout)
	}
}

// WithStrictDecoding rejects responses carrying unknown enum values.
func WithStrictDecoding(strict bool) Option {
	return func(c *Client) {
		c.strict = strict
	}
}

// WithTracing wraps the transport with OpenTelemetry instrumentation.
func WithTracing(enabled bool) Option {
	return func(c *Client) {
		c.tracing = enabled
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRequestObserver registers a callback for request metrics.
func WithRequestObserver(observer RequestObserver) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// New constructs a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("plex: base url is empty")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("plex: parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("plex: unsupported url scheme %q", parsed.Scheme)
	}

	c := &Client{
		baseURL: trimmed,
		http:    newDefaultHTTPClient(defaultRequestTimeout),
		identity: Identity{
			Product: defaultProduct,
			Version: defaultVersion,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	c.logger = logging.NewComponentLogger(c.logger, "plex")
	c.identity = normalizeIdentity(c.identity)
	if c.tracing {
		traced := *c.http
		base := traced.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		traced.Transport = otelhttp.NewTransport(base)
		c.http = &traced
	}
	return c, nil
}

// WithBaseURL returns a copy of c addressing another server. Token, identity
// and transport are shared.
func (c *Client) WithBaseURL(baseURL string) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("plex: base url is empty")
	}
	clone := *c
	clone.baseURL = trimmed
	return &clone, nil
}

// WithAccessToken returns a copy of c that authenticates with token.
func (c *Client) WithAccessToken(token string) *Client {
	clone := *c
	clone.token = strings.TrimSpace(token)
	return &clone
}

// BaseURL returns the server root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Strict reports whether unknown enum values are rejected.
func (c *Client) Strict() bool { return c.strict }

// Logger returns the component logger.
func (c *Client) Logger() *slog.Logger { return c.logger }

// Identity returns the device identity sent with requests.
func (c *Client) Identity() Identity { return c.identity }

// RequestOption customises a single request.
type RequestOption func(*requestConfig)

type requestConfig struct {
	route      string
	headers    http.Header
	timeout    time.Duration
	timeoutSet bool
	accept     string
}

// Route labels the request for logs and metrics.
func Route(name string) RequestOption {
	return func(rc *requestConfig) { rc.route = name }
}

// RequestHeader adds a header to the request.
func RequestHeader(key, value string) RequestOption {
	return func(rc *requestConfig) {
		if strings.TrimSpace(value) == "" {
			return
		}
		rc.headers.Set(key, value)
	}
}

// RequestTimeout overrides the client timeout for this request. Zero disables
// the timeout entirely.
func RequestTimeout(timeout time.Duration) RequestOption {
	return func(rc *requestConfig) {
		rc.timeout = timeout
		rc.timeoutSet = true
	}
}

// WithoutTimeout disables the client timeout for this request.
func WithoutTimeout() RequestOption {
	return RequestTimeout(0)
}

// Accept overrides the Accept header.
func Accept(mime string) RequestOption {
	return func(rc *requestConfig) { rc.accept = mime }
}

// Get issues an authenticated GET. The caller owns the response body.
func (c *Client) Get(ctx context.Context, path string, query Query, opts ...RequestOption) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, opts)
}

// PostForm issues an authenticated POST with a form body.
func (c *Client) PostForm(ctx context.Context, path string, query Query, form url.Values, opts ...RequestOption) (*http.Response, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	opts = append(opts, RequestHeader("Content-Type", "application/x-www-form-urlencoded"))
	return c.do(ctx, http.MethodPost, path, query, body, opts)
}

// GetContainer issues a GET and decodes a MediaContainer. A 404 maps to
// ErrItemNotFound and any other non-2xx status to ErrUnexpectedResponse.
func (c *Client) GetContainer(ctx context.Context, path string, query Query, opts ...RequestOption) (*MediaContainer, error) {
	resp, err := c.Get(ctx, path, query, opts...)
	if err != nil {
		return nil, err
	}
	body, err := ReadBody(resp)
	op := "GET " + path
	if err != nil {
		return nil, &Error{Kind: ErrTransport, Op: op, Status: resp.StatusCode, Err: err}
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewItemNotFound(op)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, NewUnexpectedResponse(op, resp.StatusCode, body)
	}
	container, err := DecodeMediaContainer(body, c.strict)
	if err != nil {
		var perr *Error
		if errors.As(err, &perr) {
			perr.Op = op
		}
		return nil, err
	}
	return container, nil
}

// ReadBody drains and closes the response body.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, path string, query Query, body io.Reader, opts []RequestOption) (*http.Response, error) {
	rc := requestConfig{headers: make(http.Header)}
	for _, opt := range opts {
		opt(&rc)
	}
	if rc.route == "" {
		rc.route = "other"
	}

	target := c.resolve(path, query)
	op := method + " " + path
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build plex request: %w", err)
	}
	accept := rc.accept
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	applyStandardHeaders(req, c.identity)
	if c.token != "" {
		req.Header.Set("X-Plex-Token", c.token)
	}
	for key, values := range rc.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	httpClient := c.http
	if rc.timeoutSet {
		httpClient = cloneHTTPClient(c.http, rc.timeout)
	}

	started := time.Now()
	resp, err := httpClient.Do(req)
	elapsed := time.Since(started)
	if err != nil {
		c.observe(rc.route, 0, elapsed)
		c.logger.Debug("plex request failed",
			logging.String("method", method),
			logging.String(logging.FieldRoute, rc.route),
			logging.Duration("elapsed", elapsed),
			logging.Error(err),
		)
		return nil, &Error{Kind: ErrTransport, Op: op, Err: err}
	}
	c.observe(rc.route, resp.StatusCode, elapsed)
	c.logger.Debug("plex request",
		logging.String("method", method),
		logging.String(logging.FieldRoute, rc.route),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", elapsed),
	)
	return resp, nil
}

func (c *Client) resolve(path string, query Query) string {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		target = c.baseURL + path
	}
	if encoded := query.Encode(); encoded != "" {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + encoded
	}
	return target
}

func (c *Client) observe(route string, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer(route, status, elapsed)
	}
}

func applyStandardHeaders(req *http.Request, identity Identity) {
	if identity.ClientIdentifier != "" {
		req.Header.Set("X-Plex-Client-Identifier", identity.ClientIdentifier)
	}
	req.Header.Set("X-Plex-Product", identity.Product)
	req.Header.Set("X-Plex-Version", identity.Version)
	req.Header.Set("X-Plex-Device-Name", identity.DeviceName)
	req.Header.Set("X-Plex-Platform", identity.Platform)
	req.Header.Set("User-Agent", identity.Product+"/"+identity.Version)
}

func normalizeIdentity(identity Identity) Identity {
	identity.ClientIdentifier = strings.TrimSpace(identity.ClientIdentifier)
	if identity.Product = strings.TrimSpace(identity.Product); identity.Product == "" {
		identity.Product = defaultProduct
	}
	if identity.Version = strings.TrimSpace(identity.Version); identity.Version == "" {
		identity.Version = defaultVersion
	}
	if identity.DeviceName = strings.TrimSpace(identity.DeviceName); identity.DeviceName == "" {
		identity.DeviceName = identity.Product
	}
	if identity.Platform = strings.TrimSpace(identity.Platform); identity.Platform == "" {
		identity.Platform = runtime.GOOS
	}
	return identity
}

func newDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          32,
			MaxIdleConnsPerHost:   8,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   defaultDialTimeout,
			ExpectContinueTimeout: time.Second,
		},
	}
}

// cloneHTTPClient shares the transport and connection pool; only the timeout
// differs.
func cloneHTTPClient(client *http.Client, timeout time.Duration) *http.Client {
	if client == nil {
		return newDefaultHTTPClient(timeout)
	}
	clone := *client
	clone.Timeout = timeout
	return &clone
}
