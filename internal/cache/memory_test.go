package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStore() (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.now = clock.Now
	return s, clock
}

type payload struct {
	Symbol string    `json:"symbol"`
	Closes []float64 `json:"closes"`
}

func TestMemoryStore_SetGet(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	in := payload{Symbol: "AAPL", Closes: []float64{1, 2, 3}}
	if err := s.Set(ctx, SeriesKey("AAPL", "1y"), in, 5*time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var out payload
	found, err := s.Get(ctx, SeriesKey("AAPL", "1y"), &out)
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if out.Symbol != "AAPL" || len(out.Closes) != 3 {
		t.Errorf("unexpected value %+v", out)
	}

	// Readers get a copy.
	out.Closes[0] = 99
	var again payload
	_, _ = s.Get(ctx, SeriesKey("AAPL", "1y"), &again)
	if again.Closes[0] != 1 {
		t.Error("cached value was mutated through a reader")
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()

	_ = s.Set(ctx, "short", 1, time.Minute)
	_ = s.Set(ctx, "long", 2, time.Hour)
	_ = s.Set(ctx, "forever", 3, 0)

	clock.Advance(2 * time.Minute)

	var v int
	if found, _ := s.Get(ctx, "short", &v); found {
		t.Error("expected expired entry to miss")
	}
	if found, _ := s.Get(ctx, "long", &v); !found || v != 2 {
		t.Errorf("expected long entry to hit, got %v %d", found, v)
	}

	removed, err := s.Purge(ctx)
	if err != nil || removed != 1 {
		t.Errorf("expected 1 purged entry, got %d (%v)", removed, err)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 remaining entries, got %d", s.Len())
	}

	clock.Advance(24 * time.Hour)
	if found, _ := s.Get(ctx, "forever", &v); !found || v != 3 {
		t.Error("zero ttl entry must not expire")
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()
	_ = s.Set(ctx, MetadataKey("MSFT"), "x", time.Hour)
	_ = s.Delete(ctx, MetadataKey("MSFT"))
	var v string
	if found, _ := s.Get(ctx, MetadataKey("MSFT"), &v); found {
		t.Error("expected miss after delete")
	}
}

func TestMemoryStore_ConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()
	_ = s.Set(ctx, "k", payload{Symbol: "BTC"}, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var p payload
			if found, err := s.Get(ctx, "k", &p); !found || err != nil || p.Symbol != "BTC" {
				t.Errorf("concurrent read failed: %v %v %+v", found, err, p)
			}
		}()
	}
	wg.Wait()
}

func TestKeys(t *testing.T) {
	if got := SeriesKey("AAPL", "6mo"); got != "series:AAPL:6mo" {
		t.Errorf("unexpected series key %q", got)
	}
	if got := MetadataKey("AAPL"); got != "meta:AAPL" {
		t.Errorf("unexpected metadata key %q", got)
	}
}
