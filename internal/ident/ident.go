// internal/ident/ident.go

package ident

import (
	"math/rand"
	"sync"
	"time"
)

// Bounds of the identifier space, both inclusive.
const (
	MinID = 10000
	MaxID = 99999
)

// Allocator hands out process identifiers drawn uniformly from [MinID, MaxID].
// An identifier is never issued twice by the same Allocator.
type Allocator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	issued map[int]struct{}
}

// New returns an allocator seeded with seed. A zero seed uses the wall clock.
func New(seed int64) *Allocator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Allocator{
		rng:    rand.New(rand.NewSource(seed)),
		issued: make(map[int]struct{}),
	}
}

// NewID draws until it finds a value that has not been issued yet.
// NOTE: there is no retry bound, the space is meant for a handful of processes per run.
func (a *Allocator) NewID() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	for {
		id := MinID + a.rng.Intn(MaxID-MinID+1)
		if _, used := a.issued[id]; used {
			continue
		}
		a.issued[id] = struct{}{}
		return id
	}
}

// Issued reports how many identifiers have been handed out.
func (a *Allocator) Issued() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.issued)
}
