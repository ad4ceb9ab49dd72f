package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

// Client is the transport shared by every entity. It retries transport-level
// failures only: any HTTP response, whatever its status, is returned to the
// caller. When the retries are exhausted the process is terminated.
type Client struct {
	baseURL            string
	keys               alma.KeyProvider
	httpClient         *http.Client
	logger             alma.Logger
	debug              bool
	userAgent          string
	retryCeiling       int
	retryDelay         time.Duration
	requestInterval    time.Duration
	remainingThreshold int
	exit               func(code int)
}

// Request is one remote call. Zone, Area, Permission and Env select the API key.
type Request struct {
	Method     string
	Path       string
	Query      url.Values
	Body       []byte
	Format     alma.Format
	Zone       alma.Zone
	Area       string
	Permission alma.Permission
	Env        alma.Environment
	Headers    map[string]string
}

// Response is the fully read answer of the remote service.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// ContentType returns the Content-Type header, empty when absent.
func (r *Response) ContentType() string {
	return r.Headers.Get(constants.HeaderContentType)
}

// ErrorMessage extracts the remote error message from the body.
func (r *Response) ErrorMessage() string {
	return alma.ExtractErrorMessage(r.ContentType(), r.Body)
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger alma.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRetryConfig sets the total number of attempts and the fixed delay between them.
func WithRetryConfig(ceiling int, delay time.Duration) Option {
	return func(c *Client) {
		c.retryCeiling = ceiling
		c.retryDelay = delay
	}
}

// WithRequestInterval sets the pause before every attempt. Zero disables it.
func WithRequestInterval(interval time.Duration) Option {
	return func(c *Client) {
		c.requestInterval = interval
	}
}

// WithRemainingThreshold sets the quota below which the process stops. Zero or
// less disables the check.
func WithRemainingThreshold(threshold int) Option {
	return func(c *Client) {
		c.remainingThreshold = threshold
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithTimeout sets the timeout of a single attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithExitFunc replaces os.Exit as the termination hook.
func WithExitFunc(exit func(code int)) Option {
	return func(c *Client) {
		c.exit = exit
	}
}

// NewClient creates a new transport. A nil key provider sends no Authorization header.
func NewClient(baseURL string, keys alma.KeyProvider, opts ...Option) *Client {
	client := &Client{
		baseURL:            baseURL,
		keys:               keys,
		httpClient:         &http.Client{Timeout: constants.DefaultHTTPTimeout},
		logger:             alma.NopLogger{},
		userAgent:          constants.DefaultUserAgent,
		retryCeiling:       constants.DefaultRetryCeiling,
		retryDelay:         constants.DefaultRetryDelay,
		requestInterval:    constants.DefaultRequestInterval,
		remainingThreshold: constants.DefaultRemainingThreshold,
		exit:               os.Exit,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.retryCeiling < 1 {
		client.retryCeiling = 1
	}

	return client
}

// Do performs the request. A non-2xx response is not an error. The error is
// alma.ErrTransportExhausted after the last failed attempt (once the exit hook
// returned), alma.ErrQuotaExhausted when the quota guard fired, or a wrapped
// key, context or request-building error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	call := &retryableCall{
		client:    c,
		requestID: uuid.NewString(),
		method:    req.Method,
		url:       httpReq.URL.String(),
	}

	if c.debug {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method":     call.method,
			"url":        call.url,
			"request_id": call.requestID,
		})
	}

	start := time.Now()

	resp, err := c.retryClient(call).Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("performing request: %w", ctx.Err())
		}

		c.logger.Critical(fmt.Sprintf("HTTP error: try %d => exiting of the program", call.attempt), map[string]interface{}{
			"method":     call.method,
			"url":        call.url,
			"request_id": call.requestID,
			"error":      err.Error(),
		})
		c.exit(constants.ExitCodeTransport)

		return nil, fmt.Errorf("%w: %s %s after %d attempt(s): %w", alma.ErrTransportExhausted, call.method, call.url, call.attempt, err)
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	response := &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    resp.Header,
	}

	if c.debug {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status":     response.StatusCode,
			"request_id": call.requestID,
			"duration":   time.Since(start).String(),
		})
	}

	err = c.checkRemaining(call, response)
	if err != nil {
		return nil, err
	}

	return response, nil
}

func (c *Client) buildRequest(ctx context.Context, req *Request) (*retryablehttp.Request, error) {
	fullURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	var body interface{}
	if req.Body != nil {
		body = req.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	format := req.Format
	if format == "" {
		format = alma.FormatJSON
	}

	httpReq.Header.Set(constants.HeaderContentType, format.MediaType())
	httpReq.Header.Set(constants.HeaderAccept, format.MediaType())
	httpReq.Header.Set(constants.HeaderUserAgent, c.userAgent)

	if c.keys != nil {
		key, err := c.keys.GetKey(req.Zone, req.Area, req.Permission, req.Env)
		if err != nil {
			return nil, fmt.Errorf("getting API key: %w", err)
		}

		httpReq.Header.Set(constants.HeaderAuthorization, constants.AuthorizationScheme+key)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

// checkRemaining stops the process when the daily quota is nearly used up.
func (c *Client) checkRemaining(call *retryableCall, resp *Response) error {
	if c.remainingThreshold <= 0 {
		return nil
	}

	header := resp.Headers.Get(constants.HeaderAPIRemaining)
	if header == "" {
		return nil
	}

	remaining, err := strconv.Atoi(header)
	if err != nil || remaining >= c.remainingThreshold {
		return nil
	}

	c.logger.Critical("remaining API calls below threshold => exiting of the program", map[string]interface{}{
		"remaining":  remaining,
		"threshold":  c.remainingThreshold,
		"request_id": call.requestID,
	})
	c.exit(constants.ExitCodeTransport)

	return fmt.Errorf("%w: %d remaining", alma.ErrQuotaExhausted, remaining)
}

func (c *Client) retryClient(call *retryableCall) *retryablehttp.Client {
	return &retryablehttp.Client{
		HTTPClient:     c.httpClient,
		RetryWaitMin:   c.retryDelay,
		RetryWaitMax:   c.retryDelay,
		RetryMax:       c.retryCeiling - 1,
		RequestLogHook: call.beforeAttempt,
		CheckRetry:     call.checkRetry,
		Backoff:        fixedBackoff,
		ErrorHandler:   retryablehttp.PassthroughErrorHandler,
	}
}

// retryableCall tracks the attempts of one Do invocation.
type retryableCall struct {
	client    *Client
	requestID string
	method    string
	url       string
	attempt   int
}

func (rc *retryableCall) beforeAttempt(_ retryablehttp.Logger, req *http.Request, _ int) {
	rc.attempt++

	if rc.client.requestInterval > 0 {
		select {
		case <-req.Context().Done():
		case <-time.After(rc.client.requestInterval):
		}
	}
}

// checkRetry retries connection failures and timeouts, never a received response.
func (rc *retryableCall) checkRetry(ctx context.Context, _ *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err == nil {
		return false, nil
	}

	rc.client.logger.Error(fmt.Sprintf("HTTP error: try %d", rc.attempt), map[string]interface{}{
		"method":     rc.method,
		"url":        rc.url,
		"request_id": rc.requestID,
		"attempt":    rc.attempt,
		"error":      err.Error(),
	})

	return true, nil
}

func fixedBackoff(minWait, _ time.Duration, _ int, _ *http.Response) time.Duration {
	return minWait
}
