package session

import (
	"fmt"
	"sync"
	"testing"
)

func TestBindResolveUnbind(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Resolve("conn-1"); ok {
		t.Fatal("Resolve() found a session on an empty registry")
	}

	r.Bind("conn-1", "user-a", "alice")

	s, ok := r.Resolve("conn-1")
	if !ok {
		t.Fatal("Resolve() did not find the bound session")
	}
	if s.UserID != "user-a" || s.Username != "alice" || s.ConnID != "conn-1" {
		t.Errorf("Resolve() = %+v, want {conn-1 user-a alice}", s)
	}

	r.Unbind("conn-1")
	if _, ok := r.Resolve("conn-1"); ok {
		t.Fatal("Resolve() found a session after Unbind")
	}
}

func TestUnbind_UnknownConnIsNoOp(t *testing.T) {
	r := NewRegistry()
	// Connections that never logged in also unbind on disconnect.
	r.Unbind("never-bound")
}

func TestRebindReplacesSession(t *testing.T) {
	r := NewRegistry()

	r.Bind("conn-1", "user-a", "alice")
	r.Bind("conn-1", "user-b", "bob")

	s, _ := r.Resolve("conn-1")
	if s.UserID != "user-b" {
		t.Errorf("UserID = %q, want the most recent login", s.UserID)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestMultipleSessionsPerUser(t *testing.T) {
	// One user on two connections holds two independent sessions.
	r := NewRegistry()

	r.Bind("conn-1", "user-a", "alice")
	r.Bind("conn-2", "user-a", "alice")

	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}

	r.Unbind("conn-1")
	if _, ok := r.Resolve("conn-2"); !ok {
		t.Error("unbinding one connection removed another connection's session")
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			connID := fmt.Sprintf("conn-%d", n)
			r.Bind(connID, "user", "name")
			r.Resolve(connID)
			r.Unbind(connID)
		}(i)
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Errorf("Len() = %d after all sessions unbound, want 0", r.Len())
	}
}
