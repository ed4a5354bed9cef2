package infrastructure

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MessageRateLimiter throttles outbound messages per recipient so a chatty
// contact cannot make the gateway flood them with replies.
type MessageRateLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*recipientBucket
	limit       rate.Limit
	burst       int
	idleTimeout time.Duration
	stop        chan struct{}
}

type recipientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMessageRateLimiter allows perSecond messages to each recipient with the
// given burst.
func NewMessageRateLimiter(perSecond float64, burst int) *MessageRateLimiter {
	rl := &MessageRateLimiter{
		buckets:     make(map[string]*recipientBucket),
		limit:       rate.Limit(perSecond),
		burst:       burst,
		idleTimeout: 10 * time.Minute,
		stop:        make(chan struct{}),
	}
	go rl.cleanup(5 * time.Minute)
	return rl
}

// Allow consumes a token for the recipient if one is available.
func (rl *MessageRateLimiter) Allow(recipient string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[recipient]
	if !ok {
		b = &recipientBucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[recipient] = b
	}
	b.lastSeen = time.Now()
	return b.limiter.Allow()
}

func (rl *MessageRateLimiter) Stop() {
	close(rl.stop)
}

func (rl *MessageRateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for k, b := range rl.buckets {
				if now.Sub(b.lastSeen) > rl.idleTimeout {
					delete(rl.buckets, k)
				}
			}
			rl.mu.Unlock()
		}
	}
}
