package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleAfter — через сколько неактивный игрок убирается из лимитера.
const idleAfter = 10 * time.Minute

// RateLimiter ограничивает частоту сообщений на игрока.
// Использует token bucket: rps сообщений в секунду, всплеск до burst.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[int64]*visitor
	rps      rate.Limit
	burst    int

	stopOnce sync.Once
	stopCh   chan struct{}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[int64]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Close останавливает фоновую горутину очистки.
// Его надо вызывать на shutdown (иначе cleanup будет жить вечно).
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) Allow(playerID int64) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[playerID]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[playerID] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-idleAfter)
			for playerID, v := range rl.visitors {
				if v.lastSeen.Before(cutoff) {
					delete(rl.visitors, playerID)
				}
			}
			rl.mu.Unlock()
		}
	}
}
