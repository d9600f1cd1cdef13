// Package rate throttles actions per client key, such as sending tokens to
// an email address.
package rate

import (
	"context"
	"sync"
	"time"

	"github.com/irsalhamdi/honey-shop/config"
	"golang.org/x/time/rate"
)

type Limiter struct {
	expiry time.Duration
	burst  int
	limit  rate.Limit

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// New builds a limiter from configuration. Idle clients are forgotten after
// cfg.Expiry minutes until ctx is done.
func New(ctx context.Context, cfg config.Rate) *Limiter {
	return NewLimiter(ctx, cfg.Burst, time.Duration(cfg.Expiry)*time.Minute, cfg.RPS)
}

func NewLimiter(ctx context.Context, burst int, expiry time.Duration, limitRPS float64) *Limiter {
	lm := &Limiter{
		expiry:  expiry,
		burst:   burst,
		limit:   rate.Limit(limitRPS),
		clients: make(map[string]*clientLimiter),
	}
	go lm.refresh(ctx, time.Minute)
	return lm
}

// Check consumes one token of the client bucket and reports whether the
// action is allowed.
func (l *Limiter) Check(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cl, ok := l.clients[id]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[id] = cl
	}
	cl.lastAccess = time.Now()
	return cl.limiter.Allow()
}

func (l *Limiter) refresh(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.evict(time.Now())
		}
	}
}

func (l *Limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, v := range l.clients {
		if now.Sub(v.lastAccess) > l.expiry {
			delete(l.clients, id)
		}
	}
}

func Every(interval time.Duration) float64 {
	return float64(rate.Every(interval))
}
