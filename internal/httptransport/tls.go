package httptransport

import "crypto/tls"

// insecureTLSConfig disables certificate verification. Only reachable
// when a caller explicitly sets Config.VerifyTLS = false, e.g. against a
// local development endpoint with a self-signed certificate.
func insecureTLSConfig() *tls.Config {
	return &tls.Config{InsecureSkipVerify: true}
}
