package evd

import "sync"

// caseLocks serializes index commits per case. Locks are created lazily on
// first use and never removed; the set of live cases is small relative to
// the cost of tracking lock lifetimes.
//
// The per-case lock is held only around the dedupe re-check and the index
// commit. Hashing and physical store writes happen outside it so one large
// file cannot starve intake for other cases.
type caseLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newCaseLocks() *caseLocks {
	return &caseLocks{locks: make(map[string]*sync.Mutex)}
}

// get returns the mutex for a case ID, creating it if needed.
func (c *caseLocks) get(caseID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.locks[caseID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[caseID] = l
	}
	return l
}
