// Package cache holds the clock-state cache. Invalidation is delete plus a
// generation bump, never an overwrite: a reader that started before an
// append cannot re-install the pre-append answer.
package cache

import (
	"sync"
	"time"

	"presence-track/internal/model"
)

type Entry struct {
	Status        model.ClockStatus
	LastEventTime *time.Time
}

// StatusCache is injectable so business logic can be tested against a no-op
// implementation.
type StatusCache interface {
	// Begin returns the employee's current generation. Pass it back to
	// SetIfCurrent so a fill computed from pre-invalidation state is
	// discarded.
	Begin(employeeID uint) uint64
	Get(employeeID uint) (Entry, bool)
	SetIfCurrent(employeeID uint, gen uint64, e Entry)
	Invalidate(employeeID uint)
}

type entry struct {
	Entry
	expires time.Time
}

type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[uint]entry
	gens    map[uint]uint64
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		entries: map[uint]entry{},
		gens:    map[uint]uint64{},
	}
}

func (c *Memory) Begin(employeeID uint) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[employeeID]
}

func (c *Memory) Get(employeeID uint) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[employeeID]
	if !ok {
		return Entry{}, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, employeeID)
		return Entry{}, false
	}
	return e.Entry, true
}

func (c *Memory) SetIfCurrent(employeeID uint, gen uint64, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[employeeID] != gen {
		// An append invalidated this employee while the fill was being
		// computed; the stale answer must not land.
		return
	}
	c.entries[employeeID] = entry{Entry: e, expires: time.Now().Add(c.ttl)}
}

func (c *Memory) Invalidate(employeeID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, employeeID)
	c.gens[employeeID]++
}

// Noop caches nothing; every read recomputes.
type Noop struct{}

func (Noop) Begin(uint) uint64                { return 0 }
func (Noop) Get(uint) (Entry, bool)           { return Entry{}, false }
func (Noop) SetIfCurrent(uint, uint64, Entry) {}
func (Noop) Invalidate(uint)                  {}
