package store

import "time"

// sweepLoop periodically scans and removes expired entries.
//
// Lazy expiry alone leaves tokens that are verified once and never presented
// again resident until weight pressure pushes them out.
func (l *LRU[V]) sweepLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Sweep removes every expired entry now and returns how many were dropped.
func (l *LRU[V]) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deleteExpiredLocked(l.now())
}
