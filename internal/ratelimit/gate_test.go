package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGateBoundsConcurrency(t *testing.T) {
	gate, err := NewGate(3)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	var current, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := gate.Do(context.Background(), func(context.Context) error {
				n := atomic.AddInt64(&current, 1)
				for {
					old := atomic.LoadInt64(&peak)
					if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt64(&current, -1)
				return nil
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&peak); got > 3 {
		t.Fatalf("peak concurrency %d exceeded 3 permits", got)
	}
	if gate.InUse() != 0 {
		t.Fatalf("expected all permits released, %d in use", gate.InUse())
	}
}

func TestGateReleasesOnError(t *testing.T) {
	gate, err := NewGate(1)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	boom := errors.New("boom")
	if err := gate.Do(context.Background(), func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if gate.InUse() != 0 {
		t.Fatal("permit leaked after error")
	}
}

func TestAcquireHonorsContext(t *testing.T) {
	gate, err := NewGate(1)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	if err := gate.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer gate.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := gate.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNewGateRejectsNonPositive(t *testing.T) {
	if _, err := NewGate(0); err == nil {
		t.Fatal("expected error for zero permits")
	}
}

func TestSleepWithContext(t *testing.T) {
	if err := SleepWithContext(context.Background(), 0); err != nil {
		t.Fatalf("zero duration: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepWithContext(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}
