package api

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"salonbook/internal/config"

	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// rateLimiter keeps one token bucket per client address.
type rateLimiter struct {
	limiters sync.Map
	cfg      *config.APIConfig
	trusted  []netip.Prefix
	now      func() time.Time
}

func newRateLimiter(cfg *config.APIConfig) *rateLimiter {
	l := &rateLimiter{
		cfg: cfg,
		now: time.Now,
	}
	for _, proxy := range cfg.RateLimit.TrustedProxies {
		// invalid entries are rejected by config validation
		if prefix, err := config.ParseTrustedProxy(proxy); err == nil {
			l.trusted = append(l.trusted, prefix)
		}
	}
	return l
}

func (l *rateLimiter) enabled() bool {
	return l.cfg.RateLimit.RPS > 0
}

func (l *rateLimiter) allow(r *http.Request) bool {
	if !l.enabled() {
		return true
	}
	return l.getLimiter(l.clientKey(r)).Allow()
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	now := l.now().UnixNano()
	if v, ok := l.limiters.Load(key); ok {
		if cl, ok := v.(*clientLimiter); ok {
			cl.lastSeen.Store(now)
			return cl.limiter
		}
	}

	burst := l.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	cl := &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.cfg.RateLimit.RPS), burst)}
	cl.lastSeen.Store(now)
	actual, loaded := l.limiters.LoadOrStore(key, cl)
	if loaded {
		if existing, ok := actual.(*clientLimiter); ok {
			existing.lastSeen.Store(now)
			return existing.limiter
		}
	}
	return cl.limiter
}

// sweep drops buckets not used within the idle TTL.
func (l *rateLimiter) sweep() int {
	ttl := l.cfg.RateLimit.IdleTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	cutoff := l.now().Add(-ttl).UnixNano()

	removed := 0
	l.limiters.Range(func(key, value any) bool {
		if cl, ok := value.(*clientLimiter); ok && cl.lastSeen.Load() < cutoff {
			l.limiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// clientKey is the peer address. X-Forwarded-For is read only when the peer is a
// trusted proxy; the key is then the right-most hop not itself a trusted proxy.
func (l *rateLimiter) clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		host = r.RemoteAddr
	}
	if host == "" {
		return "unknown"
	}
	if !l.isTrusted(host) {
		return host
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !l.isTrusted(hop) {
			return hop
		}
	}
	return host
}

func (l *rateLimiter) isTrusted(host string) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range l.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
