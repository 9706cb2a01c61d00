package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// localLimiters holds per-identity token buckets used only while the
// counter store is unreachable. Idle entries are swept on access.
type localLimiters struct {
	mu        sync.Mutex
	entries   map[string]*localEntry
	idleTTL   time.Duration
	lastSweep time.Time
}

type localEntry struct {
	lim      *rate.Limiter
	max      int
	window   time.Duration
	lastSeen time.Time
}

func newLocalLimiters(idleTTL time.Duration) *localLimiters {
	return &localLimiters{
		entries: make(map[string]*localEntry),
		idleTTL: idleTTL,
	}
}

// allow spends one token from the identity's bucket. The bucket refills
// maxPerWindow tokens per window and holds at most maxPerWindow.
func (l *localLimiters) allow(identity string, maxPerWindow int, window time.Duration, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.idleTTL {
		l.sweep(now)
	}

	ent, ok := l.entries[identity]
	if !ok || ent.max != maxPerWindow || ent.window != window {
		every := rate.Every(window / time.Duration(maxPerWindow))
		ent = &localEntry{
			lim:    rate.NewLimiter(every, maxPerWindow),
			max:    maxPerWindow,
			window: window,
		}
		l.entries[identity] = ent
	}
	ent.lastSeen = now

	return ent.lim.AllowN(now, 1)
}

func (l *localLimiters) sweep(now time.Time) {
	cutoff := now.Add(-l.idleTTL)
	for k, ent := range l.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(l.entries, k)
		}
	}
	l.lastSweep = now
}

func (l *localLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
