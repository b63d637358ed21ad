package client

import (
	"sync"
	"time"
)

// Kind names the local action a suppression entry covers.
type Kind string

const (
	KindUpload Kind = "upload"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// DefaultSuppressTTL covers the gap between a request returning and its echo arriving.
const DefaultSuppressTTL = 5 * time.Second

type ledgerKey struct {
	kind Kind
	id   string
}

type ledgerEntry struct {
	gen   uint64
	timer *time.Timer
}

// Ledger remembers changes this session made itself so their echoes do not toast twice.
// Entries are private to one session and vanish after their TTL; checking never extends them.
type Ledger struct {
	mu      sync.Mutex
	gen     uint64
	entries map[ledgerKey]ledgerEntry
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[ledgerKey]ledgerEntry)}
}

// Suppress marks (kind, id) for ttl. Suppressing again replaces the previous deadline.
// A ttl <= 0 expires on the next timer tick, so an event handled in the same tick may or may not be suppressed.
// The returned generation identifies this entry for Release.
func (l *Ledger) Suppress(kind Kind, id string, ttl time.Duration) uint64 {
	if ttl < 0 {
		ttl = 0
	}
	k := ledgerKey{kind: kind, id: id}

	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.entries[k]; ok {
		prev.timer.Stop()
	}
	l.gen++
	gen := l.gen
	l.entries[k] = ledgerEntry{
		gen:   gen,
		timer: time.AfterFunc(ttl, func() { l.expire(k, gen) }),
	}
	return gen
}

// Release removes the entry armed by the Suppress call that returned gen.
// It is a no-op once that entry expired or was replaced by a newer Suppress.
func (l *Ledger) Release(kind Kind, id string, gen uint64) {
	k := ledgerKey{kind: kind, id: id}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[k]; ok && e.gen == gen {
		e.timer.Stop()
		delete(l.entries, k)
	}
}

// IsSuppressed reports whether (kind, id) is currently marked.
func (l *Ledger) IsSuppressed(kind Kind, id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[ledgerKey{kind: kind, id: id}]
	return ok
}

// Len returns the number of live entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Close drops every entry and stops pending timers.
func (l *Ledger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, e := range l.entries {
		e.timer.Stop()
		delete(l.entries, k)
	}
}

// expire only removes the entry it was scheduled for; a newer Suppress owns the key otherwise.
func (l *Ledger) expire(k ledgerKey, gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[k]; ok && e.gen == gen {
		delete(l.entries, k)
	}
}
