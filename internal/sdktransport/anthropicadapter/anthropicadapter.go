// Package anthropicadapter is the Anthropic Messages API vendor
// transport. It operates on an opaque message envelope rather than a
// typed request/response pair, so vendor payload shape stays the
// caller's concern.
package anthropicadapter

import (
	"bytes"
	"context"
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/pynector/pynector-go/internal/envconfig"
	"github.com/pynector/pynector-go/internal/factoryopts"
	"github.com/pynector/pynector-go/internal/httptransport"
	"github.com/pynector/pynector-go/internal/sdktransport"
	pynerr "github.com/pynector/pynector-go/pkg/errors"
	"github.com/pynector/pynector-go/pkg/message"
	"github.com/pynector/pynector-go/pkg/transport"
)

// DefaultBaseURL is Anthropic's API base.
const DefaultBaseURL = "https://api.anthropic.com"

// DefaultAPIVersion is sent as the anthropic-version header on every
// request.
const DefaultAPIVersion = "2023-06-01"

// Config configures an Adapter.
type Config struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Headers    map[string]string
}

// Adapter is the Anthropic-backed transport.Transport and
// sdktransport.Adapter implementation.
type Adapter struct {
	http *httptransport.Transport
	cfg  Config
}

// New validates cfg, resolving an unset APIKey from the
// ANTHROPIC_API_KEY environment variable, and returns a disconnected
// Adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.APIKey == "" {
		if v := lookupVendorKey("ANTHROPIC_API_KEY"); v != "" {
			cfg.APIKey = v
		}
	}

	headers := map[string]string{
		"Content-Type":      "application/json",
		"anthropic-version": cfg.APIVersion,
	}
	if cfg.APIKey != "" {
		headers["x-api-key"] = cfg.APIKey
	}
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	httpTransport, err := httptransport.New(httptransport.Config{
		BaseURL:   cfg.BaseURL,
		Headers:   headers,
		VerifyTLS: true,
	})
	if err != nil {
		return nil, err
	}

	return &Adapter{http: httpTransport, cfg: cfg}, nil
}

func lookupVendorKey(envVar string) string {
	return envconfig.Raw(envVar)
}

func (a *Adapter) Connect(ctx context.Context) error    { return a.http.Connect(ctx) }
func (a *Adapter) Disconnect(ctx context.Context) error { return a.http.Disconnect(ctx) }
func (a *Adapter) State() transport.State               { return a.http.State() }

// Send posts data (a JSON Messages-API request body) to /v1/messages.
// Authentication is resolved once at construction time; calling Send
// before an API key is available surfaces AuthenticationError on first
// use.
func (a *Adapter) Send(ctx context.Context, data []byte, opts ...transport.Option) error {
	if a.cfg.APIKey == "" {
		return pynerr.NewAuthenticationError("no Anthropic API key configured (set Config.APIKey or ANTHROPIC_API_KEY)", nil)
	}
	merged := append([]transport.Option{transport.WithURL("/v1/messages"), transport.WithMethod("POST")}, opts...)

	err := a.http.Send(ctx, data, merged...)
	if err != nil {
		if translated := sdktransport.TranslateByClassName(err); translated != nil {
			return translated
		}
		return mapAnthropicError(err)
	}
	return nil
}

func (a *Adapter) Receive(ctx context.Context) (transport.Chunks, error) {
	return a.http.Receive(ctx)
}

// mapAnthropicError extracts Anthropic's {"error": {"type", "message"}}
// envelope from a *pynerr.TransportError's message when the underlying
// HTTP status classification already ran; this augments the message but
// leaves the Kind alone since the status-based Kind is already correct.
func mapAnthropicError(err error) error {
	var te *pynerr.TransportError
	te, ok := err.(*pynerr.TransportError)
	if !ok {
		return err
	}

	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if start := indexOfBrace(te.Message); start >= 0 {
		if jsonErr := json.Unmarshal([]byte(te.Message[start:]), &envelope); jsonErr == nil && envelope.Error.Message != "" {
			te.Message = fmt.Sprintf("%s: %s", envelope.Error.Type, envelope.Error.Message)
		}
	}
	return te
}

func indexOfBrace(s string) int {
	for i, r := range s {
		if r == '{' {
			return i
		}
	}
	return -1
}

// Complete issues a single, non-streaming Messages API request.
// prompt.Payload is already the JSON request body, passed through
// opaquely.
func (a *Adapter) Complete(ctx context.Context, prompt message.Message, opts ...transport.Option) (message.Message, error) {
	if err := a.Send(ctx, prompt.Payload, opts...); err != nil {
		return message.Message{}, err
	}
	chunks, err := a.Receive(ctx)
	if err != nil {
		return message.Message{}, err
	}
	var out []byte
	for {
		chunk, err := chunks.Next(ctx)
		out = append(out, chunk...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return message.Message{}, err
		}
	}
	return message.Message{Payload: out}, nil
}

// Stream issues a streaming Messages API request and returns a Chunks
// iterator that yields each content_block_delta event's text:
// "event: ..." lines are skipped, "data: " lines are unmarshalled as a
// generic event, and only content_block_delta events with a text_delta
// are surfaced.
func (a *Adapter) Stream(ctx context.Context, prompt message.Message, opts ...transport.Option) (transport.Chunks, error) {
	if err := a.Send(ctx, prompt.Payload, opts...); err != nil {
		return nil, err
	}
	raw, err := a.Receive(ctx)
	if err != nil {
		return nil, err
	}
	return &deltaChunks{lines: sdktransport.NewLineChunks(raw)}, nil
}

// deltaChunks decodes Anthropic's Messages-API SSE stream one event at
// a time, yielding only the text of content_block_delta events and
// skipping "event:" lines, blank separators, and every other event type
// (message_start, message_delta, message_stop, ...).
type deltaChunks struct {
	lines *sdktransport.LineChunks
}

func (d *deltaChunks) Next(ctx context.Context) ([]byte, error) {
	for {
		line, err := d.lines.NextLine(ctx)
		if err != nil {
			return nil, err
		}

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 || bytes.HasPrefix(trimmed, []byte("event:")) {
			continue
		}
		if bytes.HasPrefix(trimmed, []byte("data: ")) {
			trimmed = bytes.TrimPrefix(trimmed, []byte("data: "))
		}
		if bytes.Equal(trimmed, []byte("[DONE]")) {
			return nil, io.EOF
		}

		var event struct {
			Type  string `json:"type"`
			Delta struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"delta"`
		}
		if jsonErr := json.Unmarshal(trimmed, &event); jsonErr != nil {
			continue
		}
		if event.Type != "content_block_delta" || event.Delta.Type != "text_delta" || event.Delta.Text == "" {
			continue
		}
		return []byte(event.Delta.Text), nil
	}
}

// recognizedOptions are the keys Factory understands; anything else is
// rejected rather than silently ignored.
var recognizedOptions = []string{"api_key", "base_url", "api_version", "headers"}

// Factory returns a registry-compatible constructor reading APIKey,
// BaseURL, and APIVersion from the options map ("api_key"/"base_url"/
// "api_version").
func Factory(options map[string]any) (transport.Transport, error) {
	if err := factoryopts.Reject(options, recognizedOptions); err != nil {
		return nil, err
	}
	cfg := Config{}
	if v, ok := options["api_key"].(string); ok {
		cfg.APIKey = v
	}
	if v, ok := options["base_url"].(string); ok {
		cfg.BaseURL = v
	}
	if v, ok := options["api_version"].(string); ok {
		cfg.APIVersion = v
	}
	if v, ok := options["headers"].(map[string]string); ok {
		cfg.Headers = v
	}
	return New(cfg)
}

var _ transport.Transport = (*Adapter)(nil)
var _ sdktransport.Adapter = (*Adapter)(nil)
