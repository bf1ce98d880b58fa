// Package httptransport implements the Transport contract over a pooled
// *http.Client, with status-classified errors and backoff retry honoring
// server-signaled Retry-After cooldowns.
package httptransport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/pynector/pynector-go/internal/concurrency"
	pynerr "github.com/pynector/pynector-go/pkg/errors"
	"github.com/pynector/pynector-go/pkg/transport"
)

// DefaultMaxResponseBodyBytes caps how much of an error response's body
// (status >= 400) Send reads into the returned error's message.
// Receive's streamed reads are not subject to it; each uses a
// streamChunkSize buffer.
const DefaultMaxResponseBodyBytes int64 = 10 * 1024 * 1024

const streamChunkSize = 32 * 1024

// Transport is an HTTP implementation of transport.Transport.
type Transport struct {
	cfg    Config
	client *http.Client

	mu          sync.Mutex
	state       transport.State
	pendingResp *http.Response
}

// New validates and defaults cfg and returns a disconnected Transport.
func New(cfg Config) (*Transport, error) {
	if cfg.BaseURL == "" {
		return nil, pynerr.NewConfigurationError("BaseURL is required", nil)
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, pynerr.NewConfigurationError("BaseURL is not a valid URL", err)
	}
	cfg = cfg.withDefaults()

	rt := &http.Transport{
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
	}
	if !cfg.VerifyTLS {
		rt.TLSClientConfig = insecureTLSConfig()
	}

	client := &http.Client{
		Transport: rt,
		Timeout:   cfg.Timeout,
	}
	if !cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &Transport{cfg: cfg, client: client, state: transport.Disconnected}, nil
}

func (t *Transport) State() transport.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Connect marks the transport usable. The pooled *http.Client is already
// constructed by New; Connect exists to satisfy the lifecycle contract
// uniformly across transports.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == transport.Closed {
		return pynerr.NewConnectionError("transport is closed", nil)
	}
	t.state = transport.Connected
	return nil
}

// Disconnect closes idle pooled connections and marks the transport closed.
func (t *Transport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rt, ok := t.client.Transport.(*http.Transport); ok {
		rt.CloseIdleConnections()
	}
	if t.pendingResp != nil {
		t.pendingResp.Body.Close()
		t.pendingResp = nil
	}
	t.state = transport.Closed
	return nil
}

// Send builds and executes an HTTP request from data and opts, retrying
// on retryable statuses with cancellation-aware backoff. The resulting
// response is held for a subsequent Receive call.
func (t *Transport) Send(ctx context.Context, data []byte, opts ...transport.Option) error {
	if state := t.State(); state != transport.Connected {
		return pynerr.NewConnectionError(fmt.Sprintf("Send requires a connected transport, state is %s", state), nil)
	}

	o := transport.NewOptions(opts...)

	req, err := t.buildRequest(ctx, data, o)
	if err != nil {
		return err
	}

	resp, err := t.doWithRetry(ctx, req)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.pendingResp != nil {
		t.pendingResp.Body.Close()
	}
	t.pendingResp = resp
	t.mu.Unlock()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxResponseBodyBytes))
		resp.Body.Close()
		t.mu.Lock()
		t.pendingResp = nil
		t.mu.Unlock()
		return classifyResponse(resp.StatusCode, resp.Header, string(body))
	}

	return nil
}

func (t *Transport) buildRequest(ctx context.Context, data []byte, o *transport.Options) (*http.Request, error) {
	method := o.Method
	if method == "" {
		method = http.MethodPost
	}

	target := t.cfg.BaseURL
	if o.URL != "" {
		joined, err := url.JoinPath(t.cfg.BaseURL, o.URL)
		if err == nil {
			target = joined
		} else {
			target = o.URL
		}
	}

	var body io.Reader
	contentType := ""
	switch {
	case len(o.Files) > 0:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for name, r := range o.Files {
			fw, err := w.CreateFormFile(name, name)
			if err != nil {
				return nil, pynerr.NewSerializationError("failed to create multipart file part", err)
			}
			if _, err := io.Copy(fw, r); err != nil {
				return nil, pynerr.NewSerializationError("failed to write multipart file part", err)
			}
		}
		for k, v := range o.Form {
			if err := w.WriteField(k, v); err != nil {
				return nil, pynerr.NewSerializationError("failed to write multipart form field", err)
			}
		}
		if err := w.Close(); err != nil {
			return nil, pynerr.NewSerializationError("failed to finalize multipart body", err)
		}
		body = &buf
		contentType = w.FormDataContentType()
	case o.JSON != nil:
		b, err := json.Marshal(o.JSON)
		if err != nil {
			return nil, pynerr.NewSerializationError("failed to marshal request JSON body", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	case o.Form != nil:
		values := url.Values{}
		for k, v := range o.Form {
			values.Set(k, v)
		}
		body = strings.NewReader(values.Encode())
		contentType = "application/x-www-form-urlencoded"
	case len(data) > 0:
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, pynerr.NewProtocolError("failed to construct HTTP request", err)
	}

	for k, v := range t.cfg.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range o.Headers {
		req.Header.Set(k, v)
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	if len(o.Params) > 0 {
		q := req.URL.Query()
		for k, v := range o.Params {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	return req, nil
}

// doWithRetry executes req, retrying up to cfg.MaxRetries times on a
// status in cfg.RetryStatusForcelist or a network error, backing off for
// RetryBackoffFactor * 2^attempt seconds (the server's Retry-After
// value wins when present) via the cancellation-aware Sleep
// primitive so an outer cancellation aborts a pending backoff at once.
// A non-idempotent method (POST, PATCH) is never retried unless
// cfg.AllowNonIdempotentRetry opts in.
func (t *Transport) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= t.cfg.MaxRetries; attempt++ {
		attemptReq := req
		if attempt > 0 {
			attemptReq = req.Clone(ctx)
			// NewRequestWithContext sets GetBody for the in-memory reader
			// types buildRequest uses, so a retried request gets a fresh,
			// unconsumed body.
			if req.GetBody != nil {
				fresh, err := req.GetBody()
				if err != nil {
					return nil, pynerr.NewProtocolError("failed to rewind request body for retry", err)
				}
				attemptReq.Body = fresh
			}
		}

		resp, err := t.client.Do(attemptReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, pynerr.NewConnectionError("request cancelled", ctx.Err())
			}
			lastErr = pynerr.NewConnectionError("request failed", err)
			if attempt == t.cfg.MaxRetries || !t.cfg.canRetryMethod(req.Method) {
				return nil, lastErr
			}
			if sleepErr := t.backoff(ctx, attempt, nil); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}

		if !t.cfg.isRetryableStatus(resp.StatusCode) || attempt == t.cfg.MaxRetries || !t.cfg.canRetryMethod(req.Method) {
			return resp, nil
		}

		retryAfter := retryAfterFromHeader(resp.Header)
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if sleepErr := t.backoff(ctx, attempt, retryAfter); sleepErr != nil {
			return nil, sleepErr
		}
	}

	return nil, lastErr
}

// maxBackoffDelay caps the exponential backoff formula. A server's
// Retry-After hint is taken verbatim and is not subject to the cap.
const maxBackoffDelay = 60 * time.Second

// backoff sleeps for the computed delay and, if ctx ends the sleep
// early, propagates the underlying context error (context.Canceled or
// context.DeadlineExceeded) rather than collapsing both to a single
// sentinel — doWithRetry's callers and, further up, client.go's
// translateTimeout rely on errors.Is(err, context.DeadlineExceeded) to
// tell an explicit cancel apart from a FailAfter deadline.
func (t *Transport) backoff(ctx context.Context, attempt int, retryAfter *time.Duration) error {
	d := time.Duration(t.cfg.RetryBackoffFactor * math.Pow(2, float64(attempt)) * float64(time.Second))
	if d > maxBackoffDelay {
		d = maxBackoffDelay
	}
	if retryAfter != nil {
		d = *retryAfter
	}
	if err := concurrency.Sleep(ctx, d); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return pynerr.NewReadTimeoutError("backoff interrupted by deadline", err)
		}
		return pynerr.Cancelled
	}
	return nil
}

func retryAfterFromHeader(h http.Header) *time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		d := time.Duration(secs) * time.Second
		return &d
	}
	if when, err := http.ParseTime(v); err == nil {
		d := time.Until(when)
		if d < 0 {
			d = 0
		}
		return &d
	}
	return nil
}

func classifyResponse(status int, header http.Header, body string) error {
	if status == http.StatusTooManyRequests {
		retryAfter := retryAfterFromHeader(header)
		return pynerr.NewRateLimitError(fmt.Sprintf("rate limited: %s", body), retryAfter, nil)
	}
	return pynerr.ClassifyHTTPStatus(status, body)
}

// httpChunks streams resp.Body in fixed-size reads, releasing the
// response when exhausted or the transport's pending response is
// replaced.
type httpChunks struct {
	t    *Transport
	resp *http.Response
	buf  []byte
}

func (c *httpChunks) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, err := c.resp.Body.Read(c.buf)
	if n > 0 {
		chunk := make([]byte, n)
		copy(chunk, c.buf[:n])
		if err == io.EOF {
			c.release()
			return chunk, io.EOF
		}
		if err != nil {
			c.release()
			return chunk, pynerr.NewReadTimeoutError("error reading response body", err)
		}
		return chunk, nil
	}

	if err == io.EOF {
		c.release()
		return nil, io.EOF
	}
	if err != nil {
		c.release()
		return nil, pynerr.NewReadTimeoutError("error reading response body", err)
	}
	return nil, io.EOF
}

func (c *httpChunks) release() {
	c.resp.Body.Close()
	c.t.mu.Lock()
	if c.t.pendingResp == c.resp {
		c.t.pendingResp = nil
	}
	c.t.mu.Unlock()
}

// Receive returns a Chunks iterator over the body of the response
// produced by the most recent Send call.
func (t *Transport) Receive(ctx context.Context) (transport.Chunks, error) {
	t.mu.Lock()
	state := t.state
	resp := t.pendingResp
	t.mu.Unlock()

	if state != transport.Connected {
		return nil, pynerr.NewConnectionError(fmt.Sprintf("Receive requires a connected transport, state is %s", state), nil)
	}

	if resp == nil {
		return nil, pynerr.NewProtocolError("Receive called with no pending response", nil)
	}
	return &httpChunks{t: t, resp: resp, buf: make([]byte, streamChunkSize)}, nil
}
