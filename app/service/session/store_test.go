package session

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore() (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	return NewStore(time.Hour, clock.Now), clock
}

func TestGetOrCreate_AllocatesID(t *testing.T) {
	store, _ := newTestStore()

	id, history := store.GetOrCreate("")
	if id == "" {
		t.Fatal("expected a generated session id")
	}
	if len(history) != 0 {
		t.Errorf("fresh session history = %d turns, want 0", len(history))
	}

	other, _ := store.GetOrCreate("")
	if other == id {
		t.Error("two fresh sessions got the same id")
	}
}

func TestAppend_OrderPreserved(t *testing.T) {
	store, _ := newTestStore()
	id, _ := store.GetOrCreate("")

	for i := 0; i < 5; i++ {
		store.Append(id,
			Turn{Role: RoleUser, Text: fmt.Sprintf("q%d", i)},
			Turn{Role: RoleAssistant, Text: fmt.Sprintf("a%d", i)},
		)
	}

	_, history := store.GetOrCreate(id)
	if len(history) != 10 {
		t.Fatalf("history length = %d, want 10", len(history))
	}
	for i := 0; i < 5; i++ {
		if history[2*i].Text != fmt.Sprintf("q%d", i) {
			t.Errorf("turn %d = %q", 2*i, history[2*i].Text)
		}
		if history[2*i+1].Text != fmt.Sprintf("a%d", i) {
			t.Errorf("turn %d = %q", 2*i+1, history[2*i+1].Text)
		}
	}
}

func TestExpiry_LazyEviction(t *testing.T) {
	store, clock := newTestStore()
	id, _ := store.GetOrCreate("")
	store.Append(id, Turn{Role: RoleUser, Text: "hello"})

	clock.Advance(30 * time.Minute)
	_, history := store.GetOrCreate(id)
	if len(history) != 1 {
		t.Fatalf("history within TTL = %d turns, want 1", len(history))
	}

	clock.Advance(2 * time.Hour)
	returned, history := store.GetOrCreate(id)
	if returned != id {
		t.Errorf("expired id should be reused, got %q", returned)
	}
	if len(history) != 0 {
		t.Errorf("history after expiry = %d turns, want 0", len(history))
	}
}

func TestExpiry_ActivityExtendsLifetime(t *testing.T) {
	store, clock := newTestStore()
	id, _ := store.GetOrCreate("")
	store.Append(id, Turn{Role: RoleUser, Text: "hello"})

	// Touch the session every 40 minutes; it must never expire.
	for i := 0; i < 3; i++ {
		clock.Advance(40 * time.Minute)
		store.Append(id, Turn{Role: RoleUser, Text: "still here"})
	}

	_, history := store.GetOrCreate(id)
	if len(history) != 4 {
		t.Errorf("history = %d turns, want 4", len(history))
	}
}

func TestReset(t *testing.T) {
	store, _ := newTestStore()
	id, _ := store.GetOrCreate("")
	store.Append(id, Turn{Role: RoleUser, Text: "hello"})

	if !store.Reset(id) {
		t.Fatal("reset of a live session should succeed")
	}

	returned, history := store.GetOrCreate(id)
	if returned != id {
		t.Errorf("reset should keep the id valid, got %q", returned)
	}
	if len(history) != 0 {
		t.Errorf("history after reset = %d turns, want 0", len(history))
	}

	if store.Reset("unknown-session") {
		t.Error("reset of an unknown id should report not found")
	}
}

func TestCount_SweepsExpired(t *testing.T) {
	store, clock := newTestStore()
	store.GetOrCreate("")
	store.GetOrCreate("")

	if n := store.Count(); n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}

	clock.Advance(2 * time.Hour)
	if n := store.Count(); n != 0 {
		t.Errorf("count after expiry = %d, want 0", n)
	}
}

func TestAppend_UnknownIDSurvivesConcurrentSweep(t *testing.T) {
	store, _ := newTestStore()

	// Count sweeps expired sessions; a session created by Append must carry
	// a fresh activity stamp before the store lock is released, or a sweep
	// in that window would evict it and drop the turns.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				store.Count()
			}
		}
	}()

	for i := 0; i < 200; i++ {
		store.Append(fmt.Sprintf("session-%d", i), Turn{Role: RoleUser, Text: "hello"})
	}
	close(done)
	wg.Wait()

	for i := 0; i < 200; i++ {
		_, history := store.GetOrCreate(fmt.Sprintf("session-%d", i))
		if len(history) != 1 {
			t.Fatalf("session %d history = %d turns, want 1", i, len(history))
		}
	}
}

func TestAppend_ConcurrentSameSession(t *testing.T) {
	store, _ := newTestStore()
	id, _ := store.GetOrCreate("")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Append(id,
				Turn{Role: RoleUser, Text: fmt.Sprintf("q%d", i)},
				Turn{Role: RoleAssistant, Text: fmt.Sprintf("a%d", i)},
			)
		}(i)
	}
	wg.Wait()

	_, history := store.GetOrCreate(id)
	if len(history) != 40 {
		t.Fatalf("history length = %d, want 40", len(history))
	}

	// Pairs from one exchange must stay adjacent.
	for i := 0; i < 40; i += 2 {
		q, a := history[i], history[i+1]
		if q.Role != RoleUser || a.Role != RoleAssistant {
			t.Fatalf("turn pair %d interleaved: %+v %+v", i, q, a)
		}
		if q.Text[1:] != a.Text[1:] {
			t.Errorf("pair %d mismatched: %q vs %q", i, q.Text, a.Text)
		}
	}
}
