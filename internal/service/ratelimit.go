package service

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL is how long a client bucket may sit untouched before it is
// dropped; an evicted client simply starts over with a full bucket.
const idleTTL = 10 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client IP. Buckets refill at
// perMinute tokens a minute and hold at most perMinute tokens. Idle
// buckets are swept so the map stays bounded by recently active clients.
type ipLimiter struct {
	mu        sync.Mutex
	perMinute int
	clients   map[string]*client
	lastSweep time.Time
}

func newIPLimiter(perMinute int) *ipLimiter {
	return &ipLimiter{
		perMinute: perMinute,
		clients:   make(map[string]*client),
		lastSweep: time.Now(),
	}
}

func (l *ipLimiter) Allow(ip string) bool {
	now := time.Now()
	l.mu.Lock()
	if now.Sub(l.lastSweep) > idleTTL {
		for addr, c := range l.clients {
			if now.Sub(c.lastSeen) > idleTTL {
				delete(l.clients, addr)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &client{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute),
		}
		l.clients[ip] = c
	}
	c.lastSeen = now
	l.mu.Unlock()
	return c.limiter.Allow()
}

// clientIP prefers the first X-Forwarded-For hop so limits hold behind a
// reverse proxy, falling back to the socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
