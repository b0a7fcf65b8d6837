package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// limiterPool hands out one token bucket per account. Accounts may carry
// their own per-minute cap; everyone else shares the server default.
type limiterPool struct {
	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	defaultRate int
}

func newLimiterPool(perMinute int) *limiterPool {
	return &limiterPool{
		limiters:    make(map[string]*rate.Limiter),
		defaultRate: perMinute,
	}
}

// Allow reports whether the account may make another webhook delivery now.
// perMinute <= 0 selects the default rate. Bursts up to the per-minute cap
// are tolerated since ad platforms flush batches of callbacks at once.
func (p *limiterPool) Allow(accountID string, perMinute int) bool {
	if perMinute <= 0 {
		perMinute = p.defaultRate
	}

	p.mu.Lock()
	l, ok := p.limiters[accountID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
		p.limiters[accountID] = l
	}
	p.mu.Unlock()

	return l.Allow()
}
