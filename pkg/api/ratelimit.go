package api

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"constantdb/pkg/utils"
)

// RateLimitConfig holds the per-client token bucket settings. A zero RPS
// disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type limiterPool struct {
	mu  sync.Mutex
	m   map[string]*rate.Limiter
	cfg RateLimitConfig
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = make(map[string]*rate.Limiter)
	}
	if l, ok := p.m[key]; ok {
		return l
	}
	burst := p.cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	l := rate.NewLimiter(rate.Limit(p.cfg.RPS), burst)
	p.m[key] = l
	return l
}

func (p *limiterPool) allow(key string) bool {
	return p.get(key).Allow()
}

// RateLimitMiddleware applies a per-remote-host token bucket. Health and
// metrics probes bypass the limiter.
func RateLimitMiddleware(cfg RateLimitConfig) func(http.Handler) http.Handler {
	pool := &limiterPool{cfg: cfg}
	return func(next http.Handler) http.Handler {
		if cfg.RPS <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/healthz", "/readyz", "/metrics":
				next.ServeHTTP(w, r)
				return
			}
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			if !pool.allow(host) {
				utils.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
