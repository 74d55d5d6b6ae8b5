// Package keyring rotates between multiple API credentials so a single
// rate-limited or disabled key does not take the whole client down.
package keyring

import (
	"fmt"
	"sync"
	"time"

	"tradewire/pkg/core"
)

// Strategy selects when the ring advances to the next key.
type Strategy int

const (
	// RotateManual only advances on an explicit Rotate call.
	RotateManual Strategy = iota
	// RotateOnError advances after any classified failure.
	RotateOnError
	// RotateOnRateLimit advances only after rate limit failures.
	RotateOnRateLimit
)

// Entry is one credential with its usage bookkeeping.
type Entry struct {
	ID          string
	Credentials *core.Credentials
	Disabled    bool
	LastUsed    time.Time
	ErrorCount  int
}

// Ring holds an ordered credential set. Safe for concurrent use.
type Ring struct {
	mu       sync.RWMutex
	entries  []*Entry
	current  int
	strategy Strategy
}

// New copies the entries into a ring with the given rotation strategy.
func New(entries []*Entry, strategy Strategy) *Ring {
	copied := make([]*Entry, len(entries))
	for i, e := range entries {
		dup := *e
		copied[i] = &dup
	}
	return &Ring{entries: copied, strategy: strategy}
}

// Current returns the active enabled credential, or nil when every key is
// disabled or the ring is empty.
func (r *Ring) Current() *core.Credentials {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := 0; i < len(r.entries); i++ {
		e := r.entries[(r.current+i)%len(r.entries)]
		if !e.Disabled {
			return e.Credentials
		}
	}
	return nil
}

// Rotate advances to the next enabled credential.
func (r *Ring) Rotate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rotateLocked()
}

func (r *Ring) rotateLocked() {
	if len(r.entries) == 0 {
		return
	}
	start := r.current
	for {
		r.current = (r.current + 1) % len(r.entries)
		if !r.entries[r.current].Disabled || r.current == start {
			return
		}
	}
}

// RecordFailure counts a classified failure against the active key and
// rotates when the strategy calls for it.
func (r *Ring) RecordFailure(errType core.ErrorType) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) == 0 {
		return
	}
	r.entries[r.current].ErrorCount++

	switch r.strategy {
	case RotateOnError:
		r.rotateLocked()
	case RotateOnRateLimit:
		if errType == core.ErrorTypeRateLimit || errType == core.ErrorTypeDDoSProtection {
			r.rotateLocked()
		}
	}
}

// MarkUsed stamps the active key's last use time.
func (r *Ring) MarkUsed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) > 0 {
		r.entries[r.current].LastUsed = time.Now()
	}
}

// Disable takes a key out of rotation by id.
func (r *Ring) Disable(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			e.Disabled = true
			return
		}
	}
}

// Enable returns a key to rotation and clears its failure count.
func (r *Ring) Enable(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			e.Disabled = false
			e.ErrorCount = 0
			return
		}
	}
}

// Len returns the number of keys in the ring.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// String masks the key material; entries never print their secrets.
func (e *Entry) String() string {
	key := ""
	if e.Credentials != nil {
		key = e.Credentials.APIKey
	}
	return fmt.Sprintf("Entry{ID:%s, Key:%s}", e.ID, maskKey(key))
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
