package shared

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gregjones/httpcache"
	"golang.org/x/time/rate"
)

// Middleware decorates an [http.RoundTripper].
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripFunc adapts a function to [http.RoundTripper].
type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Chain composes middlewares so the first one sees the request first.
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.RoundTripper) http.RoundTripper {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// Passthrough is the identity middleware.
func Passthrough(next http.RoundTripper) http.RoundTripper {
	return next
}

// WithCache serves repeated GETs from an in-memory cache, honoring response cache headers.
func WithCache(cache httpcache.Cache) Middleware {
	if cache == nil {
		cache = httpcache.NewMemoryCache()
	}
	return func(next http.RoundTripper) http.RoundTripper {
		transport := httpcache.NewTransport(cache)
		transport.Transport = next
		return transport
	}
}

// WithRateLimit spaces requests to at most rps per second. Zero disables spacing.
func WithRateLimit(rps float64) Middleware {
	if rps <= 0 {
		return Passthrough
	}
	return func(next http.RoundTripper) http.RoundTripper {
		limiter := rate.NewLimiter(rate.Limit(rps), 1)
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			if err := limiter.Wait(r.Context()); err != nil {
				return nil, err
			}
			return next.RoundTrip(r)
		})
	}
}

// WithUserAgent sets the User-Agent header when the request has none.
func WithUserAgent(userAgent string) Middleware {
	if userAgent == "" {
		return Passthrough
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get("User-Agent") == "" {
				r = r.Clone(r.Context())
				r.Header.Set("User-Agent", userAgent)
			}
			return next.RoundTrip(r)
		})
	}
}

// WithLogging logs every response at debug level.
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		return Passthrough
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			if err != nil {
				logger.Debug("request failed", "method", r.Method, "url", r.URL.Redacted(), "err", err)
				return nil, err
			}
			logger.Debug("response",
				"method", r.Method,
				"url", r.URL.Redacted(),
				"status", resp.StatusCode,
				"cached", resp.Header.Get(httpcache.XFromCache) != "",
				"took", time.Since(start).Truncate(time.Millisecond),
			)
			return resp, nil
		})
	}
}

// Wrap installs mw on c's transport. A nil client becomes a new one with a 30s timeout.
func Wrap(c *http.Client, mw Middleware) *http.Client {
	if c == nil {
		c = &http.Client{Timeout: 30 * time.Second}
	}
	if c.Transport == nil {
		c.Transport = http.DefaultTransport
	}
	c.Transport = mw(c.Transport)
	return c
}

// NewHTTPClient builds the provider client from [HTTPConfig].
func NewHTTPClient(cfg HTTPConfig, logger *log.Logger) *http.Client {
	return Wrap(nil, Chain(
		WithUserAgent(cfg.UserAgent),
		WithLogging(logger),
		WithCache(nil),
		WithRateLimit(cfg.RequestsPerSecond),
	))
}
