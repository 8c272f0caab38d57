package session

import (
	"sync"
	"testing"
)

func TestGetOrCreateStartsAtName(t *testing.T) {
	store := NewMemoryStore()
	if store.Exists("u1") {
		t.Fatal("fresh store must be empty")
	}
	s := store.GetOrCreate("u1")
	if s.Step() != StepName {
		t.Fatalf("step = %s, want %s", s.Step(), StepName)
	}
	if !store.Exists("u1") {
		t.Fatal("session should exist after GetOrCreate")
	}

	store.Put("u1", Session{State: AwaitingLastName{Name: "Ana"}})
	again := store.GetOrCreate("u1")
	st, ok := again.State.(AwaitingLastName)
	if !ok || st.Name != "Ana" {
		t.Fatalf("GetOrCreate must return the existing session, got %#v", again.State)
	}
}

func TestResetReplacesExistingSession(t *testing.T) {
	store := NewMemoryStore()
	store.Put("u1", Session{State: AwaitingPhone{Name: "Ana", LastName: "Pérez"}})

	s := store.Reset("u1")
	if s.Step() != StepName {
		t.Fatalf("reset step = %s", s.Step())
	}
	got, ok := store.Get("u1")
	if !ok || got.Step() != StepName {
		t.Fatalf("stored session after reset = %#v, %v", got, ok)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	store.Clear("missing")
	store.GetOrCreate("u1")
	store.Clear("u1")
	store.Clear("u1")
	if store.Exists("u1") {
		t.Fatal("session should be gone")
	}
	if store.Len() != 0 {
		t.Fatalf("len = %d", store.Len())
	}
}

func TestPutNilStateStoresInitialSession(t *testing.T) {
	store := NewMemoryStore()
	store.Put("u1", Session{})
	got, _ := store.Get("u1")
	if _, ok := got.State.(AwaitingName); !ok {
		t.Fatalf("expected AwaitingName, got %#v", got.State)
	}
}

func TestUsersAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			user := string(rune('a' + id%26))
			store.GetOrCreate(user)
			store.Put(user, Session{State: AwaitingLastName{Name: user}})
		}(i)
	}
	wg.Wait()
	if store.Len() != 26 {
		t.Fatalf("len = %d, want 26", store.Len())
	}
	s, _ := store.Get("c")
	if st, ok := s.State.(AwaitingLastName); !ok || st.Name != "c" {
		t.Fatalf("unexpected state for c: %#v", s.State)
	}
}
