package pager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jewgo-discovery/pkg/logger"
	"jewgo-discovery/pkg/metrics"
)

// Prefetcher schedules background computation of the next result page so the
// client's follow-up request is a cache hit. Guards: never on first load,
// never while the same next-offset is in flight or completed within the
// cooldown window, and never past the total item count. Without these guards
// an eager design chains overlapping prefetches right after initial load.
type Prefetcher struct {
	mu        sync.Mutex
	inFlight  map[string]struct{}
	completed map[string]time.Time
	cooldown  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	now func() time.Time
}

func NewPrefetcher(cooldown time.Duration) *Prefetcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Prefetcher{
		inFlight:  make(map[string]struct{}),
		completed: make(map[string]time.Time),
		cooldown:  cooldown,
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
	}
}

// Schedule runs fn in the background for the page at nextOffset under the
// given filter signature. consumed must be true only once the client has
// actually consumed data (a cursor-bearing request), never on first load.
// session bounds the work to the originating caller: if it ends, the
// prefetch is cancelled. Returns whether a prefetch was started.
func (p *Prefetcher) Schedule(session context.Context, signature string, nextOffset int, total int64, consumed bool, fn func(context.Context)) bool {
	if !consumed {
		metrics.PrefetchSuppressedTotal.WithLabelValues("first_load").Inc()
		return false
	}
	if int64(nextOffset) >= total {
		metrics.PrefetchSuppressedTotal.WithLabelValues("exhausted").Inc()
		return false
	}

	key := fmt.Sprintf("%s:%d", signature, nextOffset)

	p.mu.Lock()
	if _, ok := p.inFlight[key]; ok {
		p.mu.Unlock()
		metrics.PrefetchSuppressedTotal.WithLabelValues("in_flight").Inc()
		return false
	}
	if done, ok := p.completed[key]; ok && p.now().Sub(done) < p.cooldown {
		p.mu.Unlock()
		metrics.PrefetchSuppressedTotal.WithLabelValues("cooldown").Inc()
		return false
	}
	p.inFlight[key] = struct{}{}
	p.mu.Unlock()

	metrics.PrefetchScheduledTotal.Inc()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		runCtx, cancel := context.WithCancel(p.ctx)
		defer cancel()
		if session != nil {
			go func() {
				select {
				case <-session.Done():
					cancel()
				case <-runCtx.Done():
				}
			}()
		}

		fn(runCtx)

		p.mu.Lock()
		delete(p.inFlight, key)
		p.completed[key] = p.now()
		p.mu.Unlock()
	}()
	return true
}

// Stop cancels outstanding prefetches and waits for them to finish.
func (p *Prefetcher) Stop() {
	p.cancel()
	p.wg.Wait()
	logger.GlobalLogger.Println("Prefetcher stopped")
}

// Sweep drops completion records older than the cooldown so the map does not
// grow unbounded. Called from the warmer's maintenance tick.
func (p *Prefetcher) Sweep() {
	cutoff := p.now().Add(-p.cooldown)
	p.mu.Lock()
	for key, done := range p.completed {
		if done.Before(cutoff) {
			delete(p.completed, key)
		}
	}
	p.mu.Unlock()
}
