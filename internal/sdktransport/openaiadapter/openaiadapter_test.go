package openaiadapter

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	pynerr "github.com/pynector/pynector-go/pkg/errors"
	"github.com/pynector/pynector-go/pkg/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"choices":[{"message":{"content":"hi"}}]}`))
	}))
	defer srv.Close()

	adapter, err := New(Config{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, adapter.Connect(context.Background()))
	defer adapter.Disconnect(context.Background())

	resp, err := adapter.Complete(context.Background(), message.Message{Payload: []byte(`{"model":"gpt-4"}`)})
	require.NoError(t, err)
	assert.Contains(t, string(resp.Payload), "hi")
}

func TestSendMissingAPIKeySurfacesAuthenticationError(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	adapter, err := New(Config{BaseURL: "https://example.invalid"})
	require.NoError(t, err)
	require.NoError(t, adapter.Connect(context.Background()))
	defer adapter.Disconnect(context.Background())

	err = adapter.Send(context.Background(), []byte("{}"))
	var te *pynerr.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, pynerr.KindAuthentication, te.Kind)
}

func TestSendClassifiesErrorStatusAndExtractsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_error"}}`))
	}))
	defer srv.Close()

	adapter, err := New(Config{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, adapter.Connect(context.Background()))
	defer adapter.Disconnect(context.Background())

	err = adapter.Send(context.Background(), []byte("{}"))
	var te *pynerr.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, pynerr.KindRateLimit, te.Kind)
	assert.Contains(t, te.Message, "rate limited")
}

func TestStreamYieldsContentDeltasPerChunk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(
			"data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
				"data: [DONE]\n\n",
		))
	}))
	defer srv.Close()

	adapter, err := New(Config{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, adapter.Connect(context.Background()))
	defer adapter.Disconnect(context.Background())

	chunks, err := adapter.Stream(context.Background(), message.Message{Payload: []byte(`{"model":"gpt-4","stream":true}`)})
	require.NoError(t, err)

	var got []string
	for {
		b, err := chunks.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, string(b))
	}
	// The role-only delta and the [DONE] sentinel are not content and
	// must not produce a chunk of their own.
	assert.Equal(t, []string{"Hel", "lo"}, got)
}

func TestFactoryBuildsAdapterFromOptions(t *testing.T) {
	tr, err := Factory(map[string]any{"api_key": "sk-test", "base_url": "https://example.invalid"})
	require.NoError(t, err)
	require.NotNil(t, tr)
}

func TestFactoryRejectsUnrecognizedOption(t *testing.T) {
	_, err := Factory(map[string]any{"api_key": "sk-test", "bogus_option": true})
	require.Error(t, err)
	var cfgErr *pynerr.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}
