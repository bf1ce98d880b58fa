// Package openaiadapter is the OpenAI chat-completions vendor
// transport. It operates on an opaque message envelope rather than a
// typed request/response pair, so vendor payload shape stays the
// caller's concern.
package openaiadapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/pynector/pynector-go/internal/envconfig"
	"github.com/pynector/pynector-go/internal/factoryopts"
	"github.com/pynector/pynector-go/internal/httptransport"
	"github.com/pynector/pynector-go/internal/sdktransport"
	pynerr "github.com/pynector/pynector-go/pkg/errors"
	"github.com/pynector/pynector-go/pkg/message"
	"github.com/pynector/pynector-go/pkg/transport"
)

// DefaultBaseURL is OpenAI's API base.
const DefaultBaseURL = "https://api.openai.com/v1"

// Config configures an Adapter.
type Config struct {
	APIKey  string
	BaseURL string
	Headers map[string]string
}

// Adapter is the OpenAI-backed transport.Transport and
// sdktransport.Adapter implementation.
type Adapter struct {
	http *httptransport.Transport
	cfg  Config
}

// New validates cfg, resolving an unset APIKey from the OPENAI_API_KEY
// environment variable, and returns a disconnected Adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIKey == "" {
		if v := lookupVendorKey("OPENAI_API_KEY"); v != "" {
			cfg.APIKey = v
		}
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
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

// Send posts data (a JSON chat-completions request body) to
// /chat/completions. Authentication is resolved once at construction
// time; calling Send before an API key is available surfaces
// AuthenticationError on first use.
func (a *Adapter) Send(ctx context.Context, data []byte, opts ...transport.Option) error {
	if a.cfg.APIKey == "" {
		return pynerr.NewAuthenticationError("no OpenAI API key configured (set Config.APIKey or OPENAI_API_KEY)", nil)
	}
	merged := append([]transport.Option{transport.WithURL("/chat/completions"), transport.WithMethod("POST")}, opts...)

	err := a.http.Send(ctx, data, merged...)
	if err != nil {
		if translated := sdktransport.TranslateByClassName(err); translated != nil {
			return translated
		}
		return mapOpenAIError(err)
	}
	return nil
}

func (a *Adapter) Receive(ctx context.Context) (transport.Chunks, error) {
	return a.http.Receive(ctx)
}

// mapOpenAIError extracts OpenAI's {"error": {"message", "type", "code"}}
// envelope from a *pynerr.TransportError's message when the underlying
// HTTP status classification already ran (internal/httptransport always
// classifies by status first); this augments the message but leaves the
// Kind alone since the status-based Kind is already correct.
func mapOpenAIError(err error) error {
	var te *pynerr.TransportError
	if !asTransportError(err, &te) {
		return err
	}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if jsonErr := json.Unmarshal([]byte(extractJSONObject(te.Message)), &envelope); jsonErr == nil && envelope.Error.Message != "" {
		te.Message = fmt.Sprintf("%s: %s", envelope.Error.Type, envelope.Error.Message)
	}
	return te
}

func asTransportError(err error, target **pynerr.TransportError) bool {
	te, ok := err.(*pynerr.TransportError)
	if !ok {
		return false
	}
	*target = te
	return true
}

func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	return s[start:]
}

// Complete issues a single, non-streaming chat-completions request.
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

// Stream issues a streaming chat-completions request and returns a
// Chunks iterator that yields each event's content delta: strip the
// "data: " prefix, recognize the "[DONE]" sentinel, unmarshal the
// chunk, and extract choices[0].delta.content, skipping role-only and
// empty deltas.
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

// streamChunk is the chat-completions stream event, trimmed to the
// fields Stream needs out of a content-delta event.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// deltaChunks decodes OpenAI's chat-completions SSE stream one event at
// a time, yielding only the content-delta text of each event, one event
// per chunk, and skipping comments, keep-alives, and role-only/empty deltas.
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
		if len(trimmed) == 0 {
			continue
		}
		if bytes.HasPrefix(trimmed, []byte("data: ")) {
			trimmed = bytes.TrimPrefix(trimmed, []byte("data: "))
		}
		if bytes.Equal(trimmed, []byte("[DONE]")) {
			return nil, io.EOF
		}

		var chunk streamChunk
		if jsonErr := json.Unmarshal(trimmed, &chunk); jsonErr != nil {
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		return []byte(chunk.Choices[0].Delta.Content), nil
	}
}

// recognizedOptions are the keys Factory understands; anything else is
// rejected rather than silently ignored.
var recognizedOptions = []string{"api_key", "base_url", "headers"}

// Factory returns a registry-compatible constructor reading APIKey and
// BaseURL from the options map (string-keyed "api_key"/"base_url").
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
	if v, ok := options["headers"].(map[string]string); ok {
		cfg.Headers = v
	}
	return New(cfg)
}

var _ transport.Transport = (*Adapter)(nil)
var _ sdktransport.Adapter = (*Adapter)(nil)
