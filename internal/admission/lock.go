package admission

import (
	"sync"
	"time"
)

// Locker is the admission contract for the per-key deduplication gate.
type Locker interface {
	// TryAcquire attempts to start a computation for key. On success it
	// returns a token identifying the acquisition; on rejection it returns
	// the age of the in-flight record so the caller can compute a
	// retry-after hint.
	TryAcquire(key string) (ok bool, token uint64, age time.Duration)
	// Release must be called on every exit path of an acquired computation
	// with the token from the matching TryAcquire. A stale token is a
	// no-op, so a holder whose record was taken over after going stale
	// cannot release the successor's lock.
	Release(key string, token uint64)
}

const defaultStaleAfter = 5 * time.Minute

// Lock tracks in-flight analysis keys with timestamps so that at most one
// logical computation runs per key. A record older than the staleness
// threshold is evicted and replaced on the next acquire, so a holder that
// never released (crash, stuck provider) cannot block retries forever.
// Each acquisition carries a token; Release only clears a record it owns.
type Lock struct {
	mu         sync.Mutex
	inflight   map[string]lockRecord
	staleAfter time.Duration
	lastToken  uint64

	now func() time.Time
}

type lockRecord struct {
	started time.Time
	token   uint64
}

// NewLock creates a Lock with the given staleness threshold.
func NewLock(staleAfter time.Duration) *Lock {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &Lock{
		inflight:   make(map[string]lockRecord),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// TryAcquire implements Locker.
func (l *Lock) TryAcquire(key string) (bool, uint64, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if rec, ok := l.inflight[key]; ok {
		age := now.Sub(rec.started)
		if age < l.staleAfter {
			return false, 0, age
		}
		// Stale record: the prior run is presumed dead. Take over.
	}
	l.lastToken++
	l.inflight[key] = lockRecord{started: now, token: l.lastToken}
	return true, l.lastToken, 0
}

// Release implements Locker. Releasing an unheld key, or a key whose record
// belongs to a later acquisition, is a no-op.
func (l *Lock) Release(key string, token uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec, ok := l.inflight[key]; ok && rec.token == token {
		delete(l.inflight, key)
	}
}

// StaleAfter exposes the threshold so callers can derive retry-after hints.
func (l *Lock) StaleAfter() time.Duration {
	return l.staleAfter
}

var _ Locker = (*Lock)(nil)
