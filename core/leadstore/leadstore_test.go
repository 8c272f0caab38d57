package leadstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/lead"
)

func fixedIdentity() identity {
	n := 0
	return identity{
		newID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
		now: func() time.Time { return time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC) },
	}
}

func candidate(p string) lead.Candidate {
	return lead.Candidate{Name: "Ana", LastName: "López", Phone: p, Address: "Calle Mayor 1"}
}

// exerciseStore runs the shared Store contract against s.
func exerciseStore(t *testing.T, s lead.Store) {
	t.Helper()
	ctx := context.Background()

	first, err := s.Commit(ctx, candidate("654789098"))
	if err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("commit must assign id and timestamp: %+v", first)
	}
	if first.CreatedAt.Location() != time.UTC {
		t.Fatalf("created_at should be UTC, got %v", first.CreatedAt.Location())
	}

	if _, err := s.Commit(ctx, candidate("+34 654 789 098")); !errors.Is(err, lead.ErrDuplicatePhone) {
		t.Fatalf("expected duplicate for normalized phone, got %v", err)
	}

	second, err := s.Commit(ctx, candidate("712345678"))
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("ids must be unique, both %q", first.ID)
	}

	leads, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(leads) != 2 {
		t.Fatalf("List returned %d leads, want 2", len(leads))
	}
	if leads[0].ID != first.ID || leads[1].Phone != "712345678" {
		t.Fatalf("unexpected listing: %+v", leads)
	}
	if got := leads[0]; got.Name != first.Name || got.LastName != first.LastName || got.Address != first.Address {
		t.Fatalf("listed fields differ: %+v vs %+v", leads[0], first)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestCSVStore(t *testing.T) {
	exerciseStore(t, NewCSV(filepath.Join(t.TempDir(), "data", "leads.csv")))
}

func TestMemoryCommitHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemory().Commit(ctx, candidate("654789098"))
	var perr *lead.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestMemoryConcurrentSamePhone(t *testing.T) {
	s := NewMemory()
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		dups int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Commit(context.Background(), candidate("654789098"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				oks++
			case errors.Is(err, lead.ErrDuplicatePhone):
				dups++
			}
		}()
	}
	wg.Wait()
	if oks != 1 || dups != 19 {
		t.Fatalf("oks=%d dups=%d, want 1/19", oks, dups)
	}
}

func TestCSVLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.csv")
	s := NewCSV(path)
	s.ident = fixedIdentity()
	ctx := context.Background()

	if _, err := s.Commit(ctx, candidate("654789098")); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := s.Commit(ctx, lead.Candidate{Name: "Luis", LastName: "Pérez, Gil", Phone: "712345678", Address: "Av. Sol 3"}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := []string{
		"id,created_at,name,last_name,phone,address",
		"id-1,2025-03-01T10:30:00Z,Ana,López,654789098,Calle Mayor 1",
		`id-2,2025-03-01T10:30:00Z,Luis,"Pérez, Gil",712345678,Av. Sol 3`,
	}
	if len(lines) != len(want) {
		t.Fatalf("file has %d lines, want %d:\n%s", len(lines), len(want), data)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestCSVDuplicateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.csv")
	if _, err := NewCSV(path).Commit(context.Background(), candidate("654789098")); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := NewCSV(path).Commit(context.Background(), candidate("34654789098")); !errors.Is(err, lead.ErrDuplicatePhone) {
		t.Fatalf("expected duplicate after reopen, got %v", err)
	}
}

func TestCSVReadsLegacySpreadsheetExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.csv")
	legacy := "ID, crated_at ,Name,Last_Name,Phone,Address\n" +
		"old-1,2024-11-05T09:00:00Z, Marta ,Ruiz,+34 600 111 222,Plaza 4\n" +
		",,,,,\n"
	if err := os.WriteFile(path, []byte(legacy), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := NewCSV(path)

	if _, err := s.Commit(context.Background(), candidate("600111222")); !errors.Is(err, lead.ErrDuplicatePhone) {
		t.Fatalf("expected duplicate against legacy row, got %v", err)
	}
	leads, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("List returned %d leads, want 1 (blank row skipped)", len(leads))
	}
	got := leads[0]
	if got.ID != "old-1" || got.Name != "Marta" || got.Phone != "600111222" {
		t.Fatalf("legacy row parsed as %+v", got)
	}
	if !got.CreatedAt.Equal(time.Date(2024, 11, 5, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("created_at = %v", got.CreatedAt)
	}
}

func TestCSVListMissingFile(t *testing.T) {
	leads, err := NewCSV(filepath.Join(t.TempDir(), "nope.csv")).List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if leads == nil || len(leads) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", leads)
	}
}

func TestCSVOpenFailureIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	// A directory where the file should be makes every open fail.
	path := filepath.Join(dir, "leads.csv")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	_, err := NewCSV(path).Commit(context.Background(), candidate("654789098"))
	var perr *lead.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if perr.Op != "open" {
		t.Fatalf("op = %q, want open", perr.Op)
	}
}

func TestMapInsertError(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "leads_phone_key"}
	if err := mapInsertError(fmt.Errorf("exec: %w", dup)); !errors.Is(err, lead.ErrDuplicatePhone) {
		t.Fatalf("unique violation should map to duplicate, got %v", err)
	}

	other := &pq.Error{Code: "23502"}
	err := mapInsertError(other)
	var perr *lead.PersistenceError
	if !errors.As(err, &perr) || perr.Op != "insert" {
		t.Fatalf("not-null violation should be a persistence error, got %v", err)
	}

	err = mapInsertError(errors.New("connection refused"))
	if !errors.As(err, &perr) {
		t.Fatalf("network error should be a persistence error, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	s, err := Open(config.LeadsConfig{Backend: config.BackendMemory}, nil)
	if err != nil {
		t.Fatalf("Open memory: %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Fatalf("memory backend returned %T", s)
	}

	s, err = Open(config.LeadsConfig{Backend: config.BackendCSV, CSVPath: "leads.csv"}, nil)
	if err != nil {
		t.Fatalf("Open csv: %v", err)
	}
	if _, ok := s.(*CSV); !ok {
		t.Fatalf("csv backend returned %T", s)
	}

	if _, err := Open(config.LeadsConfig{Backend: config.BackendPostgres}, nil); err == nil {
		t.Fatalf("postgres without db should fail")
	}
	if _, err := Open(config.LeadsConfig{Backend: "sheets"}, nil); err == nil {
		t.Fatalf("unknown backend should fail")
	}
}
