package ws

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mmuslimabdulj/campus-realtime/internal/domain"
)

func testCall(id, caller, callee string) domain.CallSession {
	return domain.CallSession{ID: id, CallerID: caller, CalleeID: callee, MediaRoomID: "media-" + id}
}

func TestNewFloatingSessionStore(t *testing.T) {
	store := NewFloatingSessionStore()
	if store == nil {
		t.Fatal("Expected store to be created")
	}
	if store.Count() != 0 {
		t.Errorf("Expected empty store, got %d", store.Count())
	}
}

func TestFloatingSessionStore_AcquirePair(t *testing.T) {
	store := NewFloatingSessionStore()

	if err := store.AcquirePair(testCall("c1", "alice", "bob")); err != nil {
		t.Fatalf("AcquirePair: %v", err)
	}
	if store.Count() != 2 {
		t.Fatalf("Expected 2 handles, got %d", store.Count())
	}

	handle, ok := store.Get("alice")
	if !ok {
		t.Fatal("Expected alice to hold a handle")
	}
	if handle.PeerID != "bob" || handle.CallID != "c1" || handle.MediaRoomID != "media-c1" {
		t.Errorf("Unexpected handle %+v", handle)
	}
	if handle.Since.IsZero() {
		t.Error("Expected Since to be set")
	}
}

func TestFloatingSessionStore_AllOrNothing(t *testing.T) {
	store := NewFloatingSessionStore()
	store.AcquirePair(testCall("c1", "alice", "bob"))

	// carol is free but bob is not
	if err := store.AcquirePair(testCall("c2", "carol", "bob")); err != domain.ErrBusy {
		t.Fatalf("Expected ErrBusy, got %v", err)
	}
	if store.IsBusy("carol") {
		t.Error("carol must not get a handle when bob is busy")
	}
	handle, _ := store.Get("bob")
	if handle.CallID != "c1" {
		t.Errorf("bob's handle must be unchanged, got %s", handle.CallID)
	}
}

func TestFloatingSessionStore_ReleaseMatchesCall(t *testing.T) {
	store := NewFloatingSessionStore()
	store.AcquirePair(testCall("c1", "alice", "bob"))

	// Releasing a different call leaves the handles alone
	store.Release("c2", "alice", "bob")
	if store.Count() != 2 {
		t.Fatalf("Expected handles untouched, got %d", store.Count())
	}

	store.Release("c1", "alice", "bob")
	if store.IsBusy("alice") || store.IsBusy("bob") {
		t.Error("Expected handles cleared")
	}
}

func TestFloatingSessionStore_Listeners(t *testing.T) {
	store := NewFloatingSessionStore()

	var mu sync.Mutex
	events := make(map[string][]bool)
	cancel := store.Subscribe(func(userID string, handle *domain.FloatingSession) {
		mu.Lock()
		defer mu.Unlock()
		events[userID] = append(events[userID], handle != nil)
	})

	store.AcquirePair(testCall("c1", "alice", "bob"))
	store.Release("c1", "alice", "bob")

	mu.Lock()
	if got := events["alice"]; len(got) != 2 || !got[0] || got[1] {
		t.Errorf("Expected [true false] for alice, got %v", got)
	}
	mu.Unlock()

	cancel()
	store.AcquirePair(testCall("c2", "alice", "bob"))

	mu.Lock()
	defer mu.Unlock()
	if len(events["alice"]) != 2 {
		t.Errorf("Expected no events after unsubscribe, got %v", events["alice"])
	}
}

func TestFloatingSessionStore_Concurrency(t *testing.T) {
	store := NewFloatingSessionStore()

	// Many callers race for the same callee; exactly one wins
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			call := testCall(fmt.Sprintf("c%d", i), fmt.Sprintf("caller%d", i), "bob")
			if store.AcquirePair(call) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("Expected exactly 1 winner, got %d", wins)
	}
	if store.Count() != 2 {
		t.Errorf("Expected 2 handles, got %d", store.Count())
	}
}

func TestDedupeTracker_Seen(t *testing.T) {
	d := newDedupeTracker(2, time.Hour)
	defer d.Close()

	if d.Seen("u1", "a") {
		t.Error("First sighting must not be a duplicate")
	}
	if !d.Seen("u1", "a") {
		t.Error("Second sighting must be a duplicate")
	}
	if d.Seen("u2", "a") {
		t.Error("Windows are per user")
	}

	// Window of 2 forgets the oldest id
	d.Seen("u1", "b")
	d.Seen("u1", "c")
	if d.Seen("u1", "a") {
		t.Error("Expected evicted id to be accepted again")
	}
}

func TestDedupeTracker_KeepCancelsRelease(t *testing.T) {
	d := newDedupeTracker(8, 20*time.Millisecond)
	defer d.Close()

	d.Seen("u1", "a")
	d.Release("u1")
	d.Keep("u1")

	time.Sleep(50 * time.Millisecond)
	if !d.Seen("u1", "a") {
		t.Error("Expected window to survive after Keep")
	}
}

func TestDedupeTracker_ReleaseDropsWindow(t *testing.T) {
	d := newDedupeTracker(8, 10*time.Millisecond)
	defer d.Close()

	d.Seen("u1", "a")
	d.Release("u1")

	deadline := time.Now().Add(time.Second)
	for d.Tracked() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Expected window dropped after grace")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if d.Seen("u1", "a") {
		t.Error("Expected id accepted after window dropped")
	}
}
