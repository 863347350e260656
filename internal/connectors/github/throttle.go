package github

import (
	"context"
	"sync"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/time/rate"
)

// DefaultRequestsPerSecond keeps a full walk of a large repository inside the
// authenticated quota of 5000 calls an hour.
const DefaultRequestsPerSecond = 1.2

// reserve is how many calls of the hourly quota are held back. Below it the
// throttle sleeps until the quota resets.
const reserve = 100

// throttle paces API calls with a token bucket and tracks the quota GitHub
// reports on every response.
type throttle struct {
	bucket *rate.Limiter
	now    func() time.Time

	mu    sync.Mutex
	quota gh.Rate
}

func newThrottle(perSecond float64) *throttle {
	if perSecond <= 0 {
		perSecond = DefaultRequestsPerSecond
	}
	return &throttle{
		bucket: rate.NewLimiter(rate.Limit(perSecond), 1),
		now:    time.Now,
	}
}

// wait takes a token, then sleeps out the reset window when the known
// quota is nearly spent.
func (t *throttle) wait(ctx context.Context) error {
	if err := t.bucket.Wait(ctx); err != nil {
		return err
	}
	q := t.snapshot()
	if q.Limit > 0 && q.Remaining < reserve {
		return t.sleepUntil(ctx, q.Reset.Time)
	}
	return nil
}

// observe records the quota headers go-github parsed from a response.
func (t *throttle) observe(resp *gh.Response) {
	if resp == nil || resp.Rate.Limit == 0 {
		return
	}
	t.mu.Lock()
	t.quota = resp.Rate
	t.mu.Unlock()
}

func (t *throttle) snapshot() gh.Rate {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.quota
}

func (t *throttle) sleepUntil(ctx context.Context, at time.Time) error {
	d := at.Sub(t.now())
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
