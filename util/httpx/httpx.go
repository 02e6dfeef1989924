// Package httpx holds the shared outbound HTTP client. Callers that talk
// to external endpoints (the webhook notifier) reuse it instead of the
// zero-value http.Client, which never times out.
package httpx

import (
	"net"
	"net/http"
	"time"
)

var shared = &http.Client{
	Timeout: 10 * time.Second,
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,
	},
}

// Client returns the process-wide outbound client.
func Client() *http.Client { return shared }
