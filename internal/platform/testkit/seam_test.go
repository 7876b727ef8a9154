package testkit

import (
	"sync"
	"testing"
	"time"
)

var (
	openBackend = func(url string) string { return "real:" + url }
	workers     = 2
)

func TestSwap_RestoresAfterTest(t *testing.T) {
	t.Run("swapped", func(t *testing.T) {
		Swap(t, &openBackend, func(url string) string { return "fake:" + url })
		Swap(t, &workers, 8)
		if got := openBackend("pg"); got != "fake:pg" {
			t.Fatalf("openBackend = %q", got)
		}
		if workers != 8 {
			t.Fatalf("workers = %d", workers)
		}
	})
	if got := openBackend("pg"); got != "real:pg" {
		t.Fatalf("openBackend not restored: %q", got)
	}
	if workers != 2 {
		t.Fatalf("workers not restored: %d", workers)
	}
}

func TestSerial_ExcludesOtherHolders(t *testing.T) {
	var (
		mu      sync.Mutex
		holders int
		peak    int
		wg      sync.WaitGroup
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t.Run("holder", func(t *testing.T) {
				Serial(t)
				mu.Lock()
				holders++
				peak = max(peak, holders)
				mu.Unlock()
				time.Sleep(2 * time.Millisecond)
				mu.Lock()
				holders--
				mu.Unlock()
			})
		}()
	}
	wg.Wait()
	if peak != 1 {
		t.Fatalf("peak concurrent holders = %d, want 1", peak)
	}
}
