package scheduler

import (
	"sync"
	"sync/atomic"

	"rsvpbot/src-server/model"

	"github.com/puzpuzpuz/xsync/v3"
)

type timerEntry struct {
	event model.Event
	timer Timer
	gen   uint64
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// TimerIndex maps a message id to its armed timer and a snapshot of the
// event. Every mutation of a key must happen between Lock(key) and the
// returned unlock. Each armed timer carries a generation: a callback whose
// generation is no longer the current one is stale and must not fire.
//
// A claimed key stays marked as firing until Release, so that the record
// behind it is not re-armed while the fire is still removing it.
type TimerIndex struct {
	clock   Clock
	entries *xsync.MapOf[string, *timerEntry]
	firing  *xsync.MapOf[string, uint64]
	locks   *xsync.MapOf[string, *keyLock]
	gen     atomic.Uint64
}

func NewTimerIndex(clock Clock) *TimerIndex {
	if clock == nil {
		clock = realClock{}
	}
	return &TimerIndex{
		clock:   clock,
		entries: xsync.NewMapOf[string, *timerEntry](),
		firing:  xsync.NewMapOf[string, uint64](),
		locks:   xsync.NewMapOf[string, *keyLock](),
	}
}

// Lock takes the per-key mutex. Lock entries are refcounted so the map only
// holds keys somebody is waiting on.
func (t *TimerIndex) Lock(key string) (unlock func()) {
	l, _ := t.locks.Compute(key, func(l *keyLock, loaded bool) (*keyLock, bool) {
		if !loaded {
			l = &keyLock{}
		}
		l.refs++
		return l, false
	})
	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		t.locks.Compute(key, func(l *keyLock, loaded bool) (*keyLock, bool) {
			if !loaded {
				return l, true
			}
			l.refs--
			return l, l.refs == 0
		})
	}
}

// Arm schedules fire at e's due time (immediately if already due) and
// replaces any previous entry, stopping its timer. Caller holds the key lock,
// so a zero-delay callback can't observe the index before the entry is in.
func (t *TimerIndex) Arm(e model.Event, fire func(key string, gen uint64)) uint64 {
	gen := t.gen.Add(1)
	delay := e.DueAt().Sub(t.clock.Now())
	if delay < 0 {
		delay = 0
	}
	key := e.MessageID
	entry := &timerEntry{event: e, gen: gen}
	entry.timer = t.clock.AfterFunc(delay, func() { fire(key, gen) })
	if old, loaded := t.entries.LoadAndStore(key, entry); loaded {
		old.timer.Stop()
	}
	return gen
}

// Claim removes the entry if gen is still the armed generation and marks key
// as firing until Release. Caller holds the key lock.
func (t *TimerIndex) Claim(key string, gen uint64) (model.Event, bool) {
	entry, ok := t.entries.Load(key)
	if !ok || entry.gen != gen {
		return model.Event{}, false
	}
	t.entries.Delete(key)
	t.firing.Store(key, gen)
	return entry.event, true
}

// Release clears the firing mark left by Claim for generation gen. Caller
// holds the key lock.
func (t *TimerIndex) Release(key string, gen uint64) {
	t.firing.Compute(key, func(current uint64, loaded bool) (uint64, bool) {
		return current, !loaded || current == gen
	})
}

// Firing reports whether a claimed fire of key has not been released yet.
func (t *TimerIndex) Firing(key string) bool {
	_, ok := t.firing.Load(key)
	return ok
}

// Remove stops and drops the entry. Caller holds the key lock.
func (t *TimerIndex) Remove(key string) (model.Event, bool) {
	entry, ok := t.entries.LoadAndDelete(key)
	if !ok {
		return model.Event{}, false
	}
	entry.timer.Stop()
	return entry.event, true
}

// Get returns the cached event snapshot.
func (t *TimerIndex) Get(key string) (model.Event, bool) {
	entry, ok := t.entries.Load(key)
	if !ok {
		return model.Event{}, false
	}
	return entry.event, true
}

// Generation returns the armed generation of key, 0 when absent.
func (t *TimerIndex) Generation(key string) uint64 {
	entry, ok := t.entries.Load(key)
	if !ok {
		return 0
	}
	return entry.gen
}

func (t *TimerIndex) Len() int {
	return t.entries.Size()
}

// StopAll stops every timer and empties the index, leaving records alone.
func (t *TimerIndex) StopAll() {
	t.entries.Range(func(key string, entry *timerEntry) bool {
		unlock := t.Lock(key)
		if current, ok := t.entries.Load(key); ok && current == entry {
			entry.timer.Stop()
			t.entries.Delete(key)
		}
		unlock()
		return true
	})
}
