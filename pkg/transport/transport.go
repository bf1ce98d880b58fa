// Package transport defines the sans-I/O contract every concrete transport
// (HTTP, vendor SDK adapters) implements, plus the scoped-acquisition
// helper built on top of it.
package transport

import (
	"context"
	"io"
	"sync"
	"time"
)

// State is the lifecycle state of a Transport.
type State int

const (
	Disconnected State = iota
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Chunks is an iterator over the bytes of a streamed response. Next
// returns io.EOF once the stream is exhausted, matching the convention of
// bufio.Scanner-style readers.
type Chunks interface {
	Next(ctx context.Context) ([]byte, error)
}

// Transport is the sans-I/O contract: connect, send, receive, disconnect,
// plus the current lifecycle State. Concrete implementations live in
// internal/httptransport and internal/sdktransport.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Send(ctx context.Context, data []byte, opts ...Option) error
	Receive(ctx context.Context) (Chunks, error)
	State() State
}

// Options is the resolved bag of per-call fields a caller can set through
// functional Option values. Not every transport honors every field.
type Options struct {
	URL     string
	Method  string
	Headers map[string]string
	Params  map[string]string
	JSON    any
	Form    map[string]string
	Files   map[string]io.Reader
	Model   string

	// Timeout bounds the single call it is passed to. Zero means the
	// caller's configured default applies.
	Timeout time.Duration
}

// Option customizes a single Send call.
type Option func(*Options)

// NewOptions applies opts over a zero-value bag and returns it, so a
// concrete Transport.Send implementation can inspect the resolved fields.
func NewOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func WithURL(url string) Option { return func(o *Options) { o.URL = url } }

func WithMethod(method string) Option { return func(o *Options) { o.Method = method } }

func WithHeaders(headers map[string]string) Option {
	return func(o *Options) { o.Headers = headers }
}

func WithParams(params map[string]string) Option {
	return func(o *Options) { o.Params = params }
}

func WithJSON(body any) Option { return func(o *Options) { o.JSON = body } }

func WithForm(form map[string]string) Option { return func(o *Options) { o.Form = form } }

func WithFiles(files map[string]io.Reader) Option {
	return func(o *Options) { o.Files = files }
}

func WithModel(model string) Option { return func(o *Options) { o.Model = model } }

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

// Acquire connects t and returns a release function that disconnects it.
// The release function is safe to call multiple times (only the first
// call actually disconnects) and safe to call from a defer regardless of
// whether Connect succeeded partway through a caller's setup.
func Acquire(ctx context.Context, t Transport) (func(context.Context) error, error) {
	if err := t.Connect(ctx); err != nil {
		return nil, err
	}

	var once sync.Once
	var releaseErr error
	release := func(ctx context.Context) error {
		once.Do(func() {
			releaseErr = t.Disconnect(ctx)
		})
		return releaseErr
	}
	return release, nil
}
