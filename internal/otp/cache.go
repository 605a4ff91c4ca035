package otp

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long an issued code stays valid.
const DefaultTTL = 5 * time.Minute

type entry struct {
	code      string
	expiresAt time.Time
}

// Cache is an in-process expiring code store keyed by phone number. Expiry is
// checked lazily on read, with an optional background sweep; entries never own
// timers. A code can produce at most one successful verification: Verify
// deletes the entry on match. Deliberately single-instance scoped; a process
// restart drops all pending codes, which is acceptable for short-lived codes.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores a code for the phone number, replacing any prior entry. Only the
// latest issuance is valid.
func (c *Cache) Put(phone, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[phone] = entry{code: code, expiresAt: c.now().Add(c.ttl)}
}

// Verify checks a submitted code. It returns false when no entry exists, when
// the entry has expired (removing it), or when the code does not match (entry
// retained). On a match the entry is deleted before returning true, so the
// check-and-consume step is atomic under the cache lock.
func (c *Cache) Verify(phone, submitted string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[phone]
	if !ok {
		return false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, phone)
		return false
	}
	if e.code != submitted {
		return false
	}
	delete(c.entries, phone)
	return true
}

// Purge removes all expired entries and returns how many were dropped.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for phone, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, phone)
			n++
		}
	}
	return n
}

// StartSweeper purges expired entries periodically until ctx is done.
func (c *Cache) StartSweeper(ctx context.Context, every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Purge()
			}
		}
	}()
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
