package network

import (
	"crypto/tls"
	"net/http"
)

// NewHTTPClient returns the http.Client used for package downloads.
// Callers can reuse this instead of re-defining the transport everywhere.
func NewHTTPClient() *http.Client {

	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS13,
	}

	transport := &http.Transport{
		TLSClientConfig:   tlsConfig,
		ForceAttemptHTTP2: true,
		// Build agents frequently sit behind corporate proxies.
		Proxy: http.ProxyFromEnvironment,
	}

	return &http.Client{
		Transport: transport,
	}
}
