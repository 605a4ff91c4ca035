package otp

import (
	"sync"
	"testing"
	"time"
)

// newTestCache returns a cache with a controllable clock.
func newTestCache(ttl time.Duration) (*Cache, *time.Time) {
	c := NewCache(ttl)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestVerify_ConsumesCodeOnSuccess(t *testing.T) {
	c, _ := newTestCache(DefaultTTL)
	c.Put("5551234", "042137")

	if !c.Verify("5551234", "042137") {
		t.Fatal("correct code should verify")
	}
	if c.Verify("5551234", "042137") {
		t.Fatal("a code may verify at most once")
	}
}

func TestVerify_WrongCodeRetainsEntry(t *testing.T) {
	c, _ := newTestCache(DefaultTTL)
	c.Put("5551234", "042137")

	if c.Verify("5551234", "000000") {
		t.Fatal("wrong code must not verify")
	}
	if !c.Verify("5551234", "042137") {
		t.Fatal("entry should survive a failed attempt")
	}
}

func TestVerify_UnknownPhone(t *testing.T) {
	c, _ := newTestCache(DefaultTTL)
	if c.Verify("5550000", "123456") {
		t.Fatal("unknown phone must not verify")
	}
}

func TestVerify_ExpiredCodeIsRemoved(t *testing.T) {
	c, now := newTestCache(5 * time.Minute)
	c.Put("5551234", "042137")

	*now = now.Add(5*time.Minute + time.Second)
	if c.Verify("5551234", "042137") {
		t.Fatal("expired code must not verify")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed, cache has %d entries", c.Len())
	}
}

func TestPut_ReplacesPriorCode(t *testing.T) {
	c, _ := newTestCache(DefaultTTL)
	c.Put("5551234", "111111")
	c.Put("5551234", "222222")

	if c.Verify("5551234", "111111") {
		t.Fatal("a newer issuance must invalidate the old code")
	}
	if !c.Verify("5551234", "222222") {
		t.Fatal("latest code should verify")
	}
}

func TestPurge_DropsOnlyExpired(t *testing.T) {
	c, now := newTestCache(5 * time.Minute)
	c.Put("5551111", "111111")
	*now = now.Add(3 * time.Minute)
	c.Put("5552222", "222222")
	*now = now.Add(3 * time.Minute) // first is now past TTL, second is not

	if dropped := c.Purge(); dropped != 1 {
		t.Errorf("purged: got %d, want 1", dropped)
	}
	if !c.Verify("5552222", "222222") {
		t.Error("unexpired entry should survive the sweep")
	}
}

// Concurrent verification of the same code: the check-and-delete step is
// atomic, so exactly one caller may win.
func TestVerify_ConcurrentSingleWinner(t *testing.T) {
	c, _ := newTestCache(DefaultTTL)
	c.Put("5551234", "042137")

	const callers = 16
	results := make(chan bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- c.Verify("5551234", "042137")
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("got %d successful verifications, want exactly 1", wins)
	}
}
