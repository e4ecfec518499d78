package quota

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryCounterIncrement(t *testing.T) {
	s := NewMemoryCounterStore()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.Increment(ctx, "ip:1.2.3.4", time.Minute)
		if err != nil || got != want {
			t.Fatalf("Increment = (%d, %v), want (%d, nil)", got, err, want)
		}
	}

	// Independent keys count independently.
	if got, _ := s.Increment(ctx, "ip:5.6.7.8", time.Minute); got != 1 {
		t.Fatalf("Increment new key = %d, want 1", got)
	}
}

func TestMemoryCounterExpiry(t *testing.T) {
	s := NewMemoryCounterStore()
	ctx := context.Background()

	if got, _ := s.Increment(ctx, "k", 10*time.Millisecond); got != 1 {
		t.Fatalf("first Increment = %d, want 1", got)
	}
	if got, _ := s.Increment(ctx, "k", 10*time.Millisecond); got != 2 {
		t.Fatalf("second Increment = %d, want 2", got)
	}

	time.Sleep(20 * time.Millisecond)
	if got, _ := s.Increment(ctx, "k", 10*time.Millisecond); got != 1 {
		t.Fatalf("Increment after expiry = %d, want 1 (counter reset)", got)
	}
}

// Concurrent increments from the same key must never admit more than the
// limit: with N goroutines racing, exactly `limit` of them may observe a
// count <= limit.
func TestMemoryCounterConcurrent(t *testing.T) {
	s := NewMemoryCounterStore()
	ctx := context.Background()

	const workers = 50
	const limit = 10

	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			count, err := s.Increment(ctx, "guest:day:9.9.9.9", time.Minute)
			if err != nil {
				t.Errorf("Increment error = %v", err)
				return
			}
			if count <= limit {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	if admitted != limit {
		t.Fatalf("admitted = %d, want exactly %d", admitted, limit)
	}
}
