package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"

	"github.com/goliatone/go-bankconnect/core"
)

// DefaultRequestTimeout bounds every request issued over a channel.
const DefaultRequestTimeout = 60 * time.Second

const defaultMaxResponseBodyBytes int64 = 10 << 20 // 10 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Channel lifecycle states. Transitions are driven by issue, settle, and
// abort events; a request issued while the channel is not idle fails with the
// sdk_error concurrency failure before anything touches the network.
const (
	stateIdle int32 = iota
	stateInFlight
	stateAborting
)

// Channel is one pinned HTTPS channel bound to a fixed endpoint. It allows a
// single in-flight request; its owner (a Connection or Session) holds exactly
// one channel for its lifetime.
type Channel struct {
	client    HTTPDoer
	transport *http.Transport
	config    core.Config
	label     string
	timeout   time.Duration
	maxBody   int64
	logger    core.Logger
	metrics   core.MetricsRecorder
	state     atomic.Int32
}

type ChannelOption func(*Channel)

// WithHTTPClient replaces the pinned HTTP client. Intended for tests and for
// callers that already hold a pinned transport.
func WithHTTPClient(client HTTPDoer) ChannelOption {
	return func(c *Channel) {
		c.client = client
	}
}

// WithLabel names the owning object in the concurrency error message.
func WithLabel(label string) ChannelOption {
	return func(c *Channel) {
		c.label = strings.TrimSpace(label)
	}
}

func WithTimeout(timeout time.Duration) ChannelOption {
	return func(c *Channel) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithMaxResponseBodyBytes(limit int64) ChannelOption {
	return func(c *Channel) {
		if limit > 0 {
			c.maxBody = limit
		}
	}
}

func WithLogger(logger core.Logger) ChannelOption {
	return func(c *Channel) {
		c.logger = logger
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) ChannelOption {
	return func(c *Channel) {
		c.metrics = recorder
	}
}

func NewChannel(cfg core.Config, opts ...ChannelOption) (*Channel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	channel := &Channel{
		config:  cfg,
		label:   "Channel",
		timeout: DefaultRequestTimeout,
		maxBody: defaultMaxResponseBodyBytes,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(channel)
	}

	if channel.client == nil {
		dialer, err := NewPinnedDialer(cfg)
		if err != nil {
			return nil, err
		}
		channel.transport = dialer.Transport()
		channel.client = &http.Client{Transport: channel.transport}
	}
	if channel.logger == nil {
		_, logger := glog.Resolve("bankconnect.transport", nil, nil)
		channel.logger = glog.Ensure(logger)
	}
	if channel.metrics == nil {
		channel.metrics = core.NopMetricsRecorder{}
	}
	return channel, nil
}

// Do issues one request over the channel. Exactly one outcome is produced per
// request: either a response or a typed error, never both.
func (c *Channel) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if c == nil || c.client == nil {
		return core.TransportResponse{}, errChannelMisconfigured("transport: channel requires an http client")
	}
	if !c.state.CompareAndSwap(stateIdle, stateInFlight) {
		return core.TransportResponse{}, errConcurrentRequest(c.label)
	}

	requestID := uuid.NewString()
	startedAt := time.Now().UTC()
	res, err := c.roundTrip(ctx, req, requestID)
	c.settle(err)
	c.observe(ctx, startedAt, req, res, err, requestID)
	return res, err
}

func (c *Channel) roundTrip(ctx context.Context, req core.TransportRequest, requestID string) (core.TransportResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	requestCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := strings.TrimSpace(req.Path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	httpReq, err := http.NewRequestWithContext(requestCtx, method, c.config.BaseURL()+path, bytes.NewReader(req.Body))
	if err != nil {
		return core.TransportResponse{}, errChannelMisconfigured("transport: create http request: " + err.Error())
	}
	// Content-Length is always explicit, zero included.
	httpReq.ContentLength = int64(len(req.Body))
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent())
	for key, value := range req.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(key, value)
	}

	httpRes, err := c.client.Do(httpReq)
	if err != nil {
		return core.TransportResponse{}, c.classifyTransportError(requestCtx, err)
	}
	defer httpRes.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpRes.Body, c.maxBodyBytes()+1))
	if err != nil {
		return core.TransportResponse{}, c.classifyTransportError(requestCtx, err)
	}
	if int64(len(body)) > c.maxBodyBytes() {
		return core.TransportResponse{}, errSocket(errors.New("transport: response body exceeds configured limit"))
	}

	return core.TransportResponse{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       body,
		Metadata: map[string]any{
			"request_id": requestID,
		},
	}, nil
}

// classifyTransportError maps a network-level failure onto the error taxonomy.
// Fingerprint rejection wins over everything else: by the time the dialer
// rejects a peer, the context may also have expired, and the caller must still
// learn that pinning failed.
func (c *Channel) classifyTransportError(ctx context.Context, err error) error {
	var pinErr *PinError
	if errors.As(err, &pinErr) {
		return errFingerprintMismatch(pinErr.Fingerprint)
	}
	if errors.Is(err, context.DeadlineExceeded) || (ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return errTimeout()
	}
	return errSocket(err)
}

// settle clears the in-flight guard. Timeouts and pin rejections pass through
// the aborting state and drop pooled connections, so the next request opens a
// fresh TLS session.
func (c *Channel) settle(err error) {
	if err != nil {
		switch core.ErrorCode(err) {
		case core.ErrorCodeTimeout, core.ErrorCodeSSL:
			c.state.Store(stateAborting)
			if c.transport != nil {
				c.transport.CloseIdleConnections()
			}
		}
	}
	c.state.Store(stateIdle)
}

func (c *Channel) observe(
	ctx context.Context,
	startedAt time.Time,
	req core.TransportRequest,
	res core.TransportResponse,
	err error,
	requestID string,
) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	durationMS := time.Since(startedAt).Milliseconds()

	tags := map[string]string{
		"method": strings.ToUpper(strings.TrimSpace(req.Method)),
		"status": status,
	}
	c.metrics.IncCounter(ctx, "bankconnect.request.total", 1, tags)
	c.metrics.ObserveHistogram(ctx, "bankconnect.request.duration_ms", float64(durationMS), tags)

	logger := c.logger
	if logger == nil {
		return
	}
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	fields := map[string]any{
		"request_id":  requestID,
		"method":      tags["method"],
		"path":        requestPathOnly(req.Path),
		"duration_ms": durationMS,
	}
	if err != nil {
		fields["error"] = err.Error()
		fields["error_code"] = core.ErrorCode(err)
	} else {
		fields["status_code"] = res.StatusCode
	}
	if fieldsLogger, ok := logger.(core.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(fields)
	}
	if err != nil {
		logger.Error("api request failed")
		return
	}
	logger.Debug("api request completed")
}

func (c *Channel) maxBodyBytes() int64 {
	if c.maxBody > 0 {
		return c.maxBody
	}
	return defaultMaxResponseBodyBytes
}

func (c *Channel) userAgent() string {
	if agent := strings.TrimSpace(c.config.UserAgent); agent != "" {
		return agent
	}
	return core.DefaultUserAgent
}

// requestPathOnly strips the query string so tokens passed as parameters never
// reach the logs.
func requestPathOnly(path string) string {
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		return path[:idx]
	}
	return path
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

var _ core.Channel = (*Channel)(nil)
