// Package httpclient implements the three external HTTP collaborators:
// the upstream delays feed, the journey matcher, and the claims
// oracle. Each wraps a plain net/http.Client in a circuit breaker so a
// stalled upstream degrades one tick's due set instead of pinning
// every in-flight call.
package httpclient

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// baseClient holds what every client in this package needs: a trimmed
// base URL, an http.Client with the configured timeout, and a circuit
// breaker guarding outbound calls.
type baseClient struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func newBaseClient(name, baseURL string, timeout time.Duration) baseClient {
	return baseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    0,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// isTimeout reports whether err represents a request abort due to the
// client timeout; each caller wraps it into its own "timeout" error
// string.
func isTimeout(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout()
	}
	return false
}
