package httpx

import (
	"net"
	"net/http"
	"time"
)

var transport = &http.Transport{
	DialContext: (&net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	MaxIdleConns:        100,
	MaxConnsPerHost:     100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
}

var defaultClient = New(10 * time.Second)

// Client is used for the payment gateway.
func Client() *http.Client { return defaultClient }

// New returns a client with its own timeout on the shared pooled transport.
func New(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: transport}
}
