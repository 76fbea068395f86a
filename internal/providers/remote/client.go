package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/imageviewer/internal/infrastructure/logging"
)

const (
	DefaultTimeout = 10 * time.Second
	userAgent      = "imageviewer-sync/1.0"
)

// ErrLoginFailed is returned when the login exchange yields no usable token
var ErrLoginFailed = errors.New("login failed")

// StatusError is a response outside 2xx and 409
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// RequestRecorder observes completed round trips
type RequestRecorder interface {
	RecordRequest(method string, status int, took time.Duration)
}

// Options configures a Client
type Options struct {
	URL        string
	Timeout    time.Duration
	UploadRate float64 // image uploads per second, 0 for unlimited
	Logger     *logging.Logger
	Recorder   RequestRecorder
}

// Client talks to one sync service
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	log     *logging.Logger
	base    string
	mu      sync.RWMutex
}

// New creates an unauthenticated client. Most callers want Login.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.URL), "/")
	if base == "" {
		return nil, fmt.Errorf("remote: sync URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	// pooled transport only; retrying is disabled at every layer
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil

	restyClient := resty.New().
		SetBaseURL(base).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetTransport(retryClient.HTTPClient.Transport).
		SetLogger(opts.Logger.Named("resty").Sugar()).
		SetJSONMarshaler(sonic.ConfigStd.Marshal).
		SetJSONUnmarshaler(sonic.ConfigStd.Unmarshal)

	c := &Client{
		resty:   restyClient,
		limiter: newLimiter(opts.UploadRate),
		log:     opts.Logger.Named("remote"),
		base:    base,
	}

	restyClient.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		c.log.Debug("sync request",
			zap.String("method", resp.Request.Method),
			zap.String("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("took", resp.Time()))
		if opts.Recorder != nil {
			opts.Recorder.RecordRequest(resp.Request.Method, resp.StatusCode(), resp.Time())
		}
		return nil
	})

	return c, nil
}

// Login exchanges password for a bearer token and returns an authenticated
// client
func Login(ctx context.Context, opts Options, password string) (*Client, error) {
	c, err := New(opts)
	if err != nil {
		return nil, err
	}

	var out struct {
		Token string `json:"token"`
	}
	resp, err := c.request(ctx).
		SetBody(map[string]string{"password": password}).
		Post("/login")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	if err := c.decode(resp, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	if out.Token == "" {
		return nil, fmt.Errorf("%w: no token in response", ErrLoginFailed)
	}

	c.SetToken(out.Token)
	c.log.Info("logged in to sync service", zap.String("url", c.base))
	return c, nil
}

// SetToken replaces the bearer token
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resty.SetAuthScheme("bearer").SetAuthToken(token)
}

// SetUploadRate changes the upload throttle
func (c *Client) SetUploadRate(perSecond float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limiter = newLimiter(perSecond)
}

// BaseURL returns the service root
func (c *Client) BaseURL() string { return c.base }

func (c *Client) request(ctx context.Context) *resty.Request {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resty.R().SetContext(ctx)
}

// check turns a response into an error unless it is 2xx or 409
func check(resp *resty.Response) error {
	if resp.IsSuccess() || resp.StatusCode() == http.StatusConflict {
		return nil
	}
	body := strings.TrimSpace(resp.String())
	if len(body) > 256 {
		body = body[:256]
	}
	return &StatusError{
		Method: resp.Request.Method,
		URL:    resp.Request.URL,
		Status: resp.StatusCode(),
		Body:   body,
	}
}

// decode checks the status and unmarshals a JSON body whatever the
// Content-Type header says
func (c *Client) decode(resp *resty.Response, v any) error {
	if err := check(resp); err != nil {
		return err
	}
	if err := sonic.ConfigStd.Unmarshal(resp.Body(), v); err != nil {
		return fmt.Errorf("decode %s %s: %w", resp.Request.Method, resp.Request.URL, err)
	}
	return nil
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
