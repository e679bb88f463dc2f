package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/spendwise/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitMessage is the body of a throttled response
const RateLimitMessage = "Too many requests. Please wait a moment and try again."

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// DefaultAuthRateLimit allows 10 auth form submissions per minute per client
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 10, Window: time.Minute}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP.
// Every route wrapped by the same returned middleware shares one budget.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	if config.Requests <= 0 || config.Window <= 0 {
		config = DefaultAuthRateLimit()
	}
	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyFuncs(keyByClientIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, RateLimitMessage)
		}),
	)
}

// keyByClientIP uses the address resolved by pkghttp.ClientIPMiddleware,
// which only honours forwarding headers from trusted proxies.
func keyByClientIP(r *http.Request) (string, error) {
	if ip := pkghttp.ClientIP(r.Context()); ip != "" {
		return ip, nil
	}
	return httprate.KeyByIP(r)
}
