package httptransport

import (
	"time"

	"github.com/pynector/pynector-go/internal/factoryopts"
	"github.com/pynector/pynector-go/pkg/transport"
)

// recognizedOptions are the keys Factory understands; anything else is
// rejected rather than silently ignored.
var recognizedOptions = []string{
	"base_url", "headers", "timeout", "max_retries", "retry_backoff_factor",
	"retry_status_forcelist", "allow_non_idempotent_retry", "follow_redirects", "verify_tls",
}

// Factory is a registry-compatible constructor building a Transport from
// an options map, the same "string-keyed map, per-factory recognized
// options" shape every concrete transport factory in this module shares
// (see internal/sdktransport/openaiadapter.Factory and
// internal/sdktransport/anthropicadapter.Factory).
func Factory(options map[string]any) (transport.Transport, error) {
	if err := factoryopts.Reject(options, recognizedOptions); err != nil {
		return nil, err
	}

	cfg := Config{}
	if v, ok := options["base_url"].(string); ok {
		cfg.BaseURL = v
	}
	if v, ok := options["headers"].(map[string]string); ok {
		cfg.Headers = v
	}
	if v, ok := options["timeout"].(time.Duration); ok {
		cfg.Timeout = v
	} else if secs, ok := options["timeout"].(float64); ok {
		cfg.Timeout = time.Duration(secs * float64(time.Second))
	}
	if v, ok := options["max_retries"].(int); ok {
		cfg.MaxRetries = v
	} else {
		cfg.MaxRetries = defaultMaxRetries
	}
	if v, ok := options["retry_backoff_factor"].(float64); ok {
		cfg.RetryBackoffFactor = v
	}
	if v, ok := options["retry_status_forcelist"].([]int); ok {
		cfg.RetryStatusForcelist = v
	}
	if v, ok := options["allow_non_idempotent_retry"].(bool); ok {
		cfg.AllowNonIdempotentRetry = v
	}
	if v, ok := options["follow_redirects"].(bool); ok {
		cfg.FollowRedirects = v
	} else {
		cfg.FollowRedirects = true
	}
	if v, ok := options["verify_tls"].(bool); ok {
		cfg.VerifyTLS = v
	} else {
		cfg.VerifyTLS = true
	}
	return New(cfg)
}
