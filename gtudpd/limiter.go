package gtudpd

import (
	"sync"
	"time"
)

type window struct {
	requests int
	start    time.Time
}

// rateLimiter counts requests per client in fixed windows.
type rateLimiter struct {
	mu     sync.Mutex
	max    int
	period time.Duration
	now    func() time.Time
	seen   map[string]*window
}

func newRateLimiter(max int, period time.Duration) *rateLimiter {
	return &rateLimiter{
		max:    max,
		period: period,
		now:    time.Now,
		seen:   make(map[string]*window),
	}
}

func (l *rateLimiter) allow(client string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.seen[client]
	if !ok || now.Sub(w.start) > l.period {
		l.seen[client] = &window{requests: 1, start: now}
		return true
	}
	if w.requests >= l.max {
		return false
	}
	w.requests++
	return true
}

// sweep forgets clients idle for two windows.
func (l *rateLimiter) sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for client, w := range l.seen {
		if now.Sub(w.start) > 2*l.period {
			delete(l.seen, client)
		}
	}
}
